// Package querydsl embeds the querydsl compiler in a Go program.
//
// A Client loads an engine catalog and compiles engines into query
// documents for an Elasticsearch-style backend, without running the HTTP
// service. Compiled queries can be memoized in process and, optionally,
// in Redis shared with other replicas.
//
//	client, _ := querydsl.New(ctx,
//	    querydsl.WithCatalogFile("config/catalog.yaml"),
//	    querydsl.WithCache(10000, 5*time.Minute),
//	)
//	defer client.Close()
//
//	res, _ := client.Compile(ctx, querydsl.Request{
//	    Engine: "JobSearchEngine",
//	    Params: map[string]any{"city": "Berlin"},
//	})
//	fmt.Println(string(res.Query))
package querydsl
