// Package util provides small helpers shared across mocknet packages.
//
//   - SafeFilePath / SafeFilePathAllowAbsolute reject path traversal in mock
//     file references
//   - TruncateBody caps bodies rendered into diagnostics and logs
package util
