// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - File writing
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation
//   - Image resizing and format conversion
//
// # File Operations
//
//	// Write data to file
//	err := ioutils.WriteFile(ctx, "/path/to/file.txt", []byte("content"))
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/path/to/new/directory")
//
// # Filename Sanitization
//
// Use SanitizeFileName to remove invalid characters from filenames:
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Image Processing
//
// The ImageService handles cover art manipulation:
//
//	svc := ioutils.NewImageService()
//
//	// Downscale so the longer edge fits 1000px
//	resized, _ := svc.ResizeImage(ctx, imageData, 1000)
//
//	// Convert to JPEG without resizing
//	jpeg, _ := svc.ConvertToJPEG(ctx, pngData)
package ioutils
