package project

import (
	"fmt"
	"strings"
)

// Library describes the project file of one data-access library unit.
type Library struct {
	// Name is the unit name; it doubles as root namespace, assembly name and
	// package id.
	Name     string
	Version  string
	Provider Provider
	// ModelsDir is the source subdirectory compiled into the unit.
	ModelsDir string
}

// LibraryProject renders a library unit's project file.
func LibraryProject(l Library) string {
	models := l.ModelsDir
	if models == "" {
		models = ModelsDir
	}
	provider := l.Provider
	if provider.Package == "" {
		provider = SQLServerProvider
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<Project Sdk="Microsoft.NET.Sdk">` + "\n")
	b.WriteString("  <PropertyGroup>\n")
	writeProperty(&b, "TargetFramework", TargetFramework)
	writeProperty(&b, "ImplicitUsings", "enable")
	writeProperty(&b, "Nullable", "enable")
	writeProperty(&b, "RootNamespace", l.Name)
	writeProperty(&b, "AssemblyName", l.Name)
	writeProperty(&b, "EnableDefaultCompileItems", "false")
	writeProperty(&b, "Version", l.Version)
	writeProperty(&b, "FileVersion", l.Version)
	writeProperty(&b, "AssemblyVersion", l.Version)
	writeProperty(&b, "GeneratePackageOnBuild", "true")
	writeProperty(&b, "PackageRequireLicenseAcceptance", "false")
	writeProperty(&b, "PackageId", l.Name)
	writeProperty(&b, "PackageVersion", l.Version)
	writeProperty(&b, "Authors", "Your Name or Company")
	writeProperty(&b, "Description", "Generated Entity Framework Core models for database access")
	b.WriteString("  </PropertyGroup>\n")
	b.WriteString("  <ItemGroup>\n")
	fmt.Fprintf(&b, "    <PackageReference Include=\"%s\" Version=\"%s\" />\n", xmlEscape(provider.Package), xmlEscape(provider.Version))
	fmt.Fprintf(&b, "    <PackageReference Include=\"%s\" Version=\"%s\">\n", designPackage, provider.Version)
	b.WriteString("      <PrivateAssets>all</PrivateAssets>\n")
	b.WriteString("      <IncludeAssets>runtime; build; native; contentfiles; analyzers; buildtransitive</IncludeAssets>\n")
	b.WriteString("    </PackageReference>\n")
	b.WriteString("  </ItemGroup>\n")
	b.WriteString("  <ItemGroup>\n")
	fmt.Fprintf(&b, "    <Compile Include=\"%s\\**\\*.cs\" />\n", xmlEscape(models))
	b.WriteString("  </ItemGroup>\n")
	b.WriteString("</Project>\n")
	return b.String()
}

// Shared project constants.
const (
	TargetFramework = "net8.0"
	// ModelsDir is where generated artifacts land inside a library unit.
	ModelsDir = "Models"
)

func writeProperty(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "    <%s>%s</%s>\n", name, xmlEscape(value), name)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}
