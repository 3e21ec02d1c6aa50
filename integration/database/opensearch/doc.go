// Package opensearch creates OpenSearch clients for the eventlog OpenSearch
// writer.
//
//	client, err := opensearch.New(ctx, opensearch.Config{
//		Addresses: []string{"https://localhost:9200"},
//		Username:  "admin",
//		Password:  "admin",
//	})
//	if err != nil {
//		return err
//	}
//	w := eventlog.NewOpenSearchWriter(client, "security-events")
//
// New fails fast when the cluster does not answer an info request.
package opensearch
