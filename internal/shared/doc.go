// Package shared holds code used by more than one package of the feature
// pipeline that belongs to no single layer.
//
// The testutil subpackage provides:
//
//	- BufferedSlogHandler for asserting structured log events
//	- German credit fixture tables shared by the pipeline, exporter, store and
//	  transport tests
//
// Nothing here may import a package that imports shared, and production code
// must not import testutil.
package shared
