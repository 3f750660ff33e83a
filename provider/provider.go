// Package provider defines the translation provider interface and implementations.
package provider

import "github.com/ZaguanLabs/shoptl"

// Provider is the interface for machine-translation backends.
// This is an alias to the main package interface for convenience.
type Provider = shoptl.Provider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = shoptl.TranslateRequest
