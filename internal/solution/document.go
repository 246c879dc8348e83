package solution

import (
	"fmt"
	"regexp"
	"strings"
)

// ProjectTypeID is the type identifier of SDK-style C# projects. Every unit
// declaration carries it.
const ProjectTypeID = "9A19103F-16F7-4668-BE54-9A1E7A4F7556"

// Section markers of the solution-document format.
const (
	globalMarker         = "Global"
	endGlobalMarker      = "EndGlobal"
	endSectionMarker     = "EndGlobalSection"
	solutionConfigHeader = "GlobalSection(SolutionConfigurationPlatforms) = preSolution"
	projectConfigHeader  = "GlobalSection(ProjectConfigurationPlatforms) = postSolution"
	propertiesHeader     = "GlobalSection(SolutionProperties) = preSolution"
)

var projectLine = regexp.MustCompile(`^Project\("\{([0-9A-Fa-f-]+)\}"\) = "([^"]*)", "([^"]*)", "\{([0-9A-Fa-f-]+)\}"$`)

// Render produces the full solution document for cfg and units.
func Render(cfg Config, units []Unit) string {
	var b strings.Builder
	for _, line := range headerLines(cfg) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, u := range units {
		for _, line := range declarationLines(u) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	b.WriteString(globalMarker + "\n")
	b.WriteString("\t" + solutionConfigHeader + "\n")
	for _, c := range cfg.Configurations {
		fmt.Fprintf(&b, "\t\t%s|%s = %s|%s\n", c, cfg.Platform, c, cfg.Platform)
	}
	b.WriteString("\t" + endSectionMarker + "\n")
	if len(units) > 0 {
		b.WriteString("\t" + projectConfigHeader + "\n")
		for _, u := range units {
			for _, line := range configurationLines(cfg, u) {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
		b.WriteString("\t" + endSectionMarker + "\n")
	}
	b.WriteString("\t" + propertiesHeader + "\n")
	b.WriteString("\t\tHideSolutionNode = FALSE\n")
	b.WriteString("\t" + endSectionMarker + "\n")
	b.WriteString(endGlobalMarker + "\n")
	return b.String()
}

func headerLines(cfg Config) []string {
	return []string{
		"Microsoft Visual Studio Solution File, Format Version " + cfg.FormatVersion,
		"# Visual Studio Version " + cfg.VisualStudioMajor,
		"VisualStudioVersion = " + cfg.VisualStudioVersion,
		"MinimumVisualStudioVersion = " + cfg.MinimumVisualStudioVersion,
	}
}

func declarationLines(u Unit) []string {
	return []string{
		fmt.Sprintf(`Project("{%s}") = "%s", "%s", "{%s}"`, ProjectTypeID, u.Name, u.Path, u.ID),
		"EndProject",
	}
}

// configurationLines returns the active-configuration and build-enabled line
// for each configuration of one unit.
func configurationLines(cfg Config, u Unit) []string {
	lines := make([]string, 0, 2*len(cfg.Configurations))
	for _, c := range cfg.Configurations {
		lines = append(lines,
			fmt.Sprintf("\t\t{%s}.%s|%s.ActiveCfg = %s|%s", u.ID, c, cfg.Platform, c, cfg.Platform),
			fmt.Sprintf("\t\t{%s}.%s|%s.Build.0 = %s|%s", u.ID, c, cfg.Platform, c, cfg.Platform),
		)
	}
	return lines
}

// Insert adds one unit to an existing document text. The declaration pair goes
// directly before the Global marker and the configuration entries are appended
// to the ProjectConfigurationPlatforms section, which is created in front of
// the SolutionProperties section (or EndGlobal) when missing. For a document
// produced by Render, inserting u yields the same text as rendering the unit
// list with u appended.
func Insert(doc string, cfg Config, u Unit) (string, error) {
	lines := splitLines(doc)

	for i, line := range lines {
		if m := projectLine.FindStringSubmatch(line); m != nil {
			if foldName(m[2]) == foldName(u.Name) {
				return "", &DuplicateUnitError{Name: u.Name, Existing: m[2]}
			}
			if normalizeID(m[4]) == u.ID {
				return "", &ParseError{Line: i + 1, Message: fmt.Sprintf("identifier %s already declared", u.ID)}
			}
		}
	}

	globalIdx := indexOf(lines, 0, func(l string) bool { return strings.TrimSpace(l) == globalMarker })
	if globalIdx < 0 {
		return "", &ParseError{Line: len(lines), Message: "missing Global marker"}
	}
	lines = insertAt(lines, globalIdx, declarationLines(u)...)

	configIdx := indexOf(lines, globalIdx, func(l string) bool { return strings.TrimSpace(l) == projectConfigHeader })
	if configIdx < 0 {
		at := indexOf(lines, globalIdx, func(l string) bool { return strings.TrimSpace(l) == propertiesHeader })
		if at < 0 {
			at = indexOf(lines, globalIdx, func(l string) bool { return strings.TrimSpace(l) == endGlobalMarker })
		}
		if at < 0 {
			return "", &ParseError{Line: len(lines), Message: "missing EndGlobal marker"}
		}
		lines = insertAt(lines, at, "\t"+projectConfigHeader, "\t"+endSectionMarker)
		configIdx = at
	}

	endIdx := indexOf(lines, configIdx+1, func(l string) bool { return strings.TrimSpace(l) == endSectionMarker })
	if endIdx < 0 {
		return "", &ParseError{Line: configIdx + 1, Message: "unterminated ProjectConfigurationPlatforms section"}
	}
	lines = insertAt(lines, endIdx, configurationLines(cfg, u)...)

	return strings.Join(lines, "\n"), nil
}

// Parse reads a solution document back into a manifest. Unit names, paths,
// identifiers and order are preserved. Kinds are inferred from the path: units
// under API/ are API units, everything else is a library.
func Parse(doc string, opts ...Option) (*Manifest, error) {
	cfg := Config{}
	var regs []Registration
	section := ""

	for i, raw := range splitLines(doc) {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Microsoft Visual Studio Solution File, Format Version "):
			cfg.FormatVersion = strings.TrimPrefix(line, "Microsoft Visual Studio Solution File, Format Version ")
		case strings.HasPrefix(line, "# Visual Studio Version "):
			cfg.VisualStudioMajor = strings.TrimPrefix(line, "# Visual Studio Version ")
		case strings.HasPrefix(line, "VisualStudioVersion = "):
			cfg.VisualStudioVersion = strings.TrimPrefix(line, "VisualStudioVersion = ")
		case strings.HasPrefix(line, "MinimumVisualStudioVersion = "):
			cfg.MinimumVisualStudioVersion = strings.TrimPrefix(line, "MinimumVisualStudioVersion = ")
		case strings.HasPrefix(line, "Project("):
			m := projectLine.FindStringSubmatch(line)
			if m == nil {
				return nil, &ParseError{Line: i + 1, Message: fmt.Sprintf("malformed project declaration %q", line)}
			}
			regs = append(regs, registrationFromPath(m[2], m[3], m[4]))
		case strings.HasPrefix(line, "GlobalSection("):
			section = line
		case line == endSectionMarker:
			section = ""
		case section == solutionConfigHeader:
			name, platform, ok := parseSolutionConfig(line)
			if !ok {
				return nil, &ParseError{Line: i + 1, Message: fmt.Sprintf("malformed configuration %q", line)}
			}
			cfg.Configurations = append(cfg.Configurations, name)
			cfg.Platform = platform
		}
	}

	if cfg.FormatVersion == "" {
		return nil, &ParseError{Line: 1, Message: "missing solution file header"}
	}

	m := New(cfg, opts...)
	for _, r := range regs {
		if _, err := m.Register(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func registrationFromPath(name, p, id string) Registration {
	r := Registration{ID: id, Name: name, Path: p, Kind: KindLibrary}
	segments := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	if len(segments) > 0 && strings.EqualFold(segments[0], KindAPI.Token()) {
		r.Kind = KindAPI
	}
	if r.Kind == KindLibrary && len(segments) > 2 && strings.EqualFold(segments[0], KindLibrary.Token()) {
		r.Database = segments[1]
	}
	return r
}

// parseSolutionConfig reads "Debug|Any CPU = Debug|Any CPU".
func parseSolutionConfig(line string) (name, platform string, ok bool) {
	left, _, found := strings.Cut(line, " = ")
	if !found {
		return "", "", false
	}
	name, platform, found = strings.Cut(left, "|")
	if !found || name == "" || platform == "" {
		return "", "", false
	}
	return name, platform, true
}

func splitLines(doc string) []string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	return strings.Split(doc, "\n")
}

func indexOf(lines []string, from int, pred func(string) bool) int {
	for i := from; i < len(lines); i++ {
		if pred(lines[i]) {
			return i
		}
	}
	return -1
}

func insertAt(lines []string, at int, add ...string) []string {
	out := make([]string, 0, len(lines)+len(add))
	out = append(out, lines[:at]...)
	out = append(out, add...)
	out = append(out, lines[at:]...)
	return out
}
