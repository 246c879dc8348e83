package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// API describes the web API unit that exposes every library of a run.
type API struct {
	Name    string
	Version string
	// References are project paths relative to the API unit directory.
	References []string
}

// Swagger package referenced by the API unit.
const (
	swaggerPackage = "Swashbuckle.AspNetCore"
	swaggerVersion = "6.4.0"
)

// APIProject renders the API unit's project file. The reference list
// enumerates every library unit of the run.
func APIProject(a API) string {
	var b strings.Builder
	b.WriteString(`<Project Sdk="Microsoft.NET.Sdk.Web">` + "\n")
	b.WriteString("  <PropertyGroup>\n")
	writeProperty(&b, "TargetFramework", TargetFramework)
	writeProperty(&b, "Nullable", "enable")
	writeProperty(&b, "ImplicitUsings", "enable")
	writeProperty(&b, "RootNamespace", a.Name)
	writeProperty(&b, "AssemblyName", a.Name)
	writeProperty(&b, "Version", a.Version)
	b.WriteString("  </PropertyGroup>\n")
	b.WriteString("  <ItemGroup>\n")
	fmt.Fprintf(&b, "    <PackageReference Include=\"%s\" Version=\"%s\" />\n", swaggerPackage, swaggerVersion)
	b.WriteString("  </ItemGroup>\n")
	if len(a.References) > 0 {
		b.WriteString("  <ItemGroup>\n")
		for _, ref := range a.References {
			fmt.Fprintf(&b, "    <ProjectReference Include=\"%s\" />\n", xmlEscape(strings.ReplaceAll(ref, "/", `\`)))
		}
		b.WriteString("  </ItemGroup>\n")
	}
	b.WriteString("</Project>\n")
	return b.String()
}

// Endpoint is one database exposed by the API entry point.
type Endpoint struct {
	Database string
	// Context is the fully qualified data-context type.
	Context string
	// Route is the route segment under /api.
	Route string
	// ConnectionName is the key under ConnectionStrings.
	ConnectionName string
	Provider       Provider
}

// APIProgram renders Program.cs: one data context registration and one route
// group per endpoint.
func APIProgram(endpoints []Endpoint) string {
	var b strings.Builder
	b.WriteString("using Microsoft.EntityFrameworkCore;\n")
	b.WriteString("\n")
	b.WriteString("var builder = WebApplication.CreateBuilder(args);\n")
	b.WriteString("\n")
	b.WriteString("builder.Services.AddEndpointsApiExplorer();\n")
	b.WriteString("builder.Services.AddSwaggerGen();\n")
	for _, e := range endpoints {
		expr := fmt.Sprintf("builder.Configuration.GetConnectionString(%q)", e.ConnectionName)
		fmt.Fprintf(&b, "builder.Services.AddDbContext<%s>(options =>\n", e.Context)
		fmt.Fprintf(&b, "    %s);\n", e.Provider.Configure(expr))
	}
	b.WriteString("\n")
	b.WriteString("var app = builder.Build();\n")
	b.WriteString("\n")
	b.WriteString("if (app.Environment.IsDevelopment())\n")
	b.WriteString("{\n")
	b.WriteString("    app.UseSwagger();\n")
	b.WriteString("    app.UseSwaggerUI();\n")
	b.WriteString("}\n")
	b.WriteString("\n")
	for _, e := range endpoints {
		fmt.Fprintf(&b, "app.MapGroup(\"/api/%s\").WithTags(%q);\n", e.Route, e.Database)
	}
	if len(endpoints) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("app.Run();\n")
	return b.String()
}

// AppSettings is the API unit's appsettings.json.
type AppSettings struct {
	Logging           LoggingSettings   `json:"Logging"`
	AllowedHosts      string            `json:"AllowedHosts"`
	ConnectionStrings map[string]string `json:"ConnectionStrings"`
}

// LoggingSettings is the Logging block of AppSettings.
type LoggingSettings struct {
	LogLevel LogLevels `json:"LogLevel"`
}

// LogLevels holds per-category minimum levels.
type LogLevels struct {
	Default             string `json:"Default"`
	Microsoft           string `json:"Microsoft"`
	MicrosoftAspNetCore string `json:"Microsoft.AspNetCore"`
}

// DefaultConnectionName is the server-level connection string key.
const DefaultConnectionName = "DefaultConnection"

// NewAppSettings returns settings carrying the server connection under
// DefaultConnection plus one entry per database.
func NewAppSettings(server string, databases map[string]string) AppSettings {
	conns := make(map[string]string, len(databases)+1)
	conns[DefaultConnectionName] = server
	for name, conn := range databases {
		conns[name] = conn
	}
	return AppSettings{
		Logging: LoggingSettings{LogLevel: LogLevels{
			Default:             "Information",
			Microsoft:           "Warning",
			MicrosoftAspNetCore: "Warning",
		}},
		AllowedHosts:      "*",
		ConnectionStrings: conns,
	}
}

// Render returns the indented JSON document.
func (s AppSettings) Render() (string, error) {
	return renderJSON(s)
}

func renderJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("render json: %w", err)
	}
	return buf.String(), nil
}
