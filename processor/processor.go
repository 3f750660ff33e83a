// Package processor provides content processing implementations.
package processor

import "github.com/ZaguanLabs/shoptl"

// ContentProcessor is an alias to the main package interface.
type ContentProcessor = shoptl.ContentProcessor
