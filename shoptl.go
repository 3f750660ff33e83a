// Package shoptl translates selected products of a Shopify translation export.
//
// Shoptl finds every row belonging to a set of product handles, sends the
// translatable fields through a machine-translation provider and writes the
// results back into the "Translated content" column. Line breaks, bullet
// markers and decimal numbers are protected across the translation round trip.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/shoptl"
//	    "github.com/ZaguanLabs/shoptl/processor"
//	    "github.com/ZaguanLabs/shoptl/provider"
//	    "github.com/ZaguanLabs/shoptl/table"
//	)
//
//	func main() {
//	    tbl, err := table.Read(file)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    sel, err := shoptl.Select(tbl.Rows, shoptl.ParseHandles("karhu-ikoni-2-0"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    p := provider.NewDeepLProvider(provider.DeepLConfig{
//	        APIKey: os.Getenv("DEEPL_API_KEY"),
//	    })
//
//	    t := shoptl.NewTranslator(p,
//	        shoptl.WithProcessor(processor.NewLayoutProcessor()),
//	    )
//
//	    result, err := t.Process(context.Background(), sel.Rows)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    tbl.Write(os.Stdout, result.Rows)
//	}
package shoptl
