// Package multiid provides a Go client that looks up records in a Solr-style
// search backend by any of several identifier fields.
//
// A record may be known by its primary id, an ISBN, a MARC control number or
// any other indexed field. The client turns one identifier value into a
// disjunctive query across every configured field and sends it to the
// backend's retrieve or similar-records handler.
//
//	client, _ := multiid.New(ctx,
//	    multiid.WithSolr("http://localhost:8983/solr/biblio"),
//	    multiid.WithIDFields("id,isbn,issn"),
//	    multiid.WithMemoryCache(10000),
//	)
//	defer client.Close()
//
//	res, _ := client.Retrieve(ctx, "9780262033848", nil)
//	// res.Body is the backend's raw response; client.UniqueKey() names the field
//	// that identifies each returned document.
//
//	p := multiid.NewParams()
//	p.Set("rows", "5")
//	similar, _ := client.Similar(ctx, "9780262033848", p)
package multiid
