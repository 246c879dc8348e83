// Package project renders the per-unit descriptor files of a generated
// solution: library and API project files, the API entry point and settings,
// and the options bundle handed to the scaffolding engine.
//
// Every template is a plain function of typed inputs returning the file text.
package project
