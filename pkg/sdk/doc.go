// Package clientrag embeds the per-client vector index manager in a Go program.
//
// Every client owns a primary index, rebuilt wholesale on each full run, and one
// index per specialised category (crm, chatExternal, transcript, faq,
// chatInternal) that grows by appending.
//
// # Indexing
//
//	client, _ := clientrag.New(
//	    clientrag.WithIndexDir("/var/lib/clientrag"),
//	    clientrag.WithEmbedder(myEmbedder),
//	    clientrag.WithFetcher(myFetcher),
//	)
//	report, _ := client.RebuildAll(ctx, []clientrag.Document{
//	    {Client: "acme", DocumentID: "1AbC"},
//	    {Client: "acme", DocumentID: "9XyZ", Category: "faq"},
//	})
//
// # Search
//
//	res, _ := client.Search(ctx, "acme", "opening hours", 5)
//	for _, c := range res.Primary {
//	    fmt.Println(c.SourceDocumentID, c.Text)
//	}
//	fmt.Println(res.Categories["faq"])
package clientrag
