// Package fileutil provides lazy directory traversal for candidate data files.
//
// Walk is the primitive: a depth-first sequence of file paths filtered by
// extension, backed by filepath.WalkDir so nesting depth does not grow
// memory beyond the current path. Consumers range over it and may stop at
// any point:
//
//	for path, err := range fileutil.Walk(root, fileutil.WalkOptions{Extensions: []string{".csv"}}) {
//	    if err != nil {
//	        log.Printf("skipping: %v", err)
//	        continue
//	    }
//	    process(path)
//	}
//
// # Error Handling
//
// A directory that cannot be read is reported as a *WalkError and its
// subtree is skipped. The walk itself continues unless the consumer stops
// ranging. A root that does not exist or is not a directory produces a
// single error and nothing else.
//
// # Filtering
//
//   - Extensions are matched case-insensitively, with or without a leading dot
//   - ExcludeDirs skips directories by base name
//   - ExcludeFiles skips specific files by absolute path (the results file)
//   - SkipHidden skips directories whose name starts with "."
//
// ScanDirectory collects a whole walk into a sorted slice for callers that
// want a listing rather than a stream.
package fileutil
