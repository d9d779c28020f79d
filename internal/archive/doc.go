// Package archive extracts font archives into a font directory.
//
// # Extraction
//
// Entries are processed in archive order. For every entry the extractor:
//   - decodes and sanitizes the entry name into a relative path, skipping
//     names that would land outside the font directory
//   - skips entries below a top-level subtree meant for another operating
//     system (the "Windows" directory of aggregator archives)
//   - creates directory entries, and writes file entries accepted by the
//     inclusion filter
//   - restores unix permission bits carried by the entry when the platform
//     supports them
//
// The returned count covers every file and directory written. A count of
// zero is not an error here; callers decide what it means.
//
// # Inclusion filter
//
// Interactive mode asks about each file through a LineSource until the
// answer is one of Y, y, Yes, yes, N, n, No or no. Otherwise the extension
// filter drops .otf files (or .ttf files when OTF is preferred) and lets
// every other file through, so licences and readmes are always installed.
package archive
