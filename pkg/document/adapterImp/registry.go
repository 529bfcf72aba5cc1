package adapterImp

import "formassist/pkg/document/adapter"

// Default registers every built-in format.
func Default() *adapter.Registry {
	return adapter.NewRegistry(NewDOCX(), NewXLSX(), NewHTML())
}
