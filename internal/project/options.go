package project

// OptionsFileName is the file the options bundle is written to for the
// scaffolding engine.
const OptionsFileName = "efcpt-config.json"

// OptionsSchemaURL is the JSON schema reference written into the bundle.
const OptionsSchemaURL = "https://raw.githubusercontent.com/ErikEJ/EFCorePowerTools/master/samples/efcpt-schema.json"

// ScaffoldOptions is the fixed options bundle handed to the scaffolding
// engine for every database. Every recognised option is listed; defaults come
// from DefaultScaffoldOptions.
type ScaffoldOptions struct {
	Schema         string         `json:"$schema"`
	CodeGeneration CodeGeneration `json:"code-generation"`
	FileLayout     FileLayout     `json:"file-layout"`
	Names          Names          `json:"names"`
	// Tables restricts scaffolding to the listed "[schema].[table]" objects.
	// Empty means every table.
	Tables []ObjectName `json:"tables,omitempty"`
}

// CodeGeneration holds the code-generation switches.
type CodeGeneration struct {
	EnableOnConfiguring                           bool    `json:"enable-on-configuring" yaml:"enable-on-configuring"`
	GenerateMermaidDiagram                        bool    `json:"generate-mermaid-diagram" yaml:"generate-mermaid-diagram"`
	MergeDacpacs                                  bool    `json:"merge-dacpacs" yaml:"merge-dacpacs"`
	RefreshObjectLists                            bool    `json:"refresh-object-lists" yaml:"refresh-object-lists"`
	RemoveDefaultSQLFromBoolProperties            bool    `json:"remove-defaultsql-from-bool-properties" yaml:"remove-defaultsql-from-bool-properties"`
	SoftDeleteObsoleteFiles                       bool    `json:"soft-delete-obsolete-files" yaml:"soft-delete-obsolete-files"`
	T4TemplatePath                                *string `json:"t4-template-path" yaml:"t4-template-path"`
	Type                                          string  `json:"type" yaml:"type"`
	UseAlternateStoredProcedureResultSetDiscovery bool    `json:"use-alternate-stored-procedure-resultset-discovery" yaml:"use-alternate-stored-procedure-resultset-discovery"`
	UseDataAnnotations                            bool    `json:"use-data-annotations" yaml:"use-data-annotations"`
	UseDatabaseNames                              bool    `json:"use-database-names" yaml:"use-database-names"`
	UseDecimalDataAnnotationForSprocResults       bool    `json:"use-decimal-data-annotation-for-sproc-results" yaml:"use-decimal-data-annotation-for-sproc-results"`
	UseInflector                                  bool    `json:"use-inflector" yaml:"use-inflector"`
	UseLegacyInflector                            bool    `json:"use-legacy-inflector" yaml:"use-legacy-inflector"`
	UseManyToManyEntity                           bool    `json:"use-many-to-many-entity" yaml:"use-many-to-many-entity"`
	UseNullableReferenceTypes                     bool    `json:"use-nullable-reference-types" yaml:"use-nullable-reference-types"`
	UsePrefixNavigationNaming                     bool    `json:"use-prefix-navigation-naming" yaml:"use-prefix-navigation-naming"`
	UseT4                                         bool    `json:"use-t4" yaml:"use-t4"`
}

// FileLayout tells the engine where to put generated files, relative to the
// unit directory.
type FileLayout struct {
	OutputDbContextPath string `json:"output-dbcontext-path"`
	OutputPath          string `json:"output-path"`
}

// Names carries the per-database type and namespace names.
type Names struct {
	DbContextName      string  `json:"dbcontext-name"`
	DbContextNamespace string  `json:"dbcontext-namespace"`
	ModelNamespace     string  `json:"model-namespace"`
	RootNamespace      *string `json:"root-namespace"`
}

// ObjectName names one database object in the bundle.
type ObjectName struct {
	Name string `json:"name"`
}

// DefaultCodeGeneration returns the code-generation defaults.
func DefaultCodeGeneration() CodeGeneration {
	return CodeGeneration{
		RefreshObjectLists:      true,
		SoftDeleteObsoleteFiles: true,
		Type:                    "all",
		UseAlternateStoredProcedureResultSetDiscovery: true,
		UseDataAnnotations:                      true,
		UseDatabaseNames:                        true,
		UseDecimalDataAnnotationForSprocResults: true,
		UseInflector:                            true,
		UseNullableReferenceTypes:               true,
		UsePrefixNavigationNaming:               true,
	}
}

// DefaultScaffoldOptions returns the bundle for one database with the given
// context type name and namespace.
func DefaultScaffoldOptions(contextName, namespace string) ScaffoldOptions {
	return NewScaffoldOptions(DefaultCodeGeneration(), contextName, namespace)
}

// NewScaffoldOptions builds a bundle from explicit code-generation settings.
func NewScaffoldOptions(cg CodeGeneration, contextName, namespace string) ScaffoldOptions {
	return ScaffoldOptions{
		Schema:         OptionsSchemaURL,
		CodeGeneration: cg,
		FileLayout: FileLayout{
			OutputDbContextPath: ModelsDir,
			OutputPath:          ModelsDir,
		},
		Names: Names{
			DbContextName:      contextName,
			DbContextNamespace: namespace,
			ModelNamespace:     namespace,
		},
	}
}

// WithTables returns a copy restricted to the given "[schema].[table]" names.
func (o ScaffoldOptions) WithTables(names []string) ScaffoldOptions {
	o.Tables = nil
	for _, n := range names {
		o.Tables = append(o.Tables, ObjectName{Name: n})
	}
	return o
}

// Render returns the bundle as indented JSON.
func (o ScaffoldOptions) Render() (string, error) {
	return renderJSON(o)
}
