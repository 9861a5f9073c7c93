// Package pagination walks PokeAPI list endpoints and resolves the
// references they return.
//
// List endpoints return pages of {count, next, previous, results}. Drain
// turns a listing into a lazy sequence that fetches the next page only when
// the consumer reaches the end of the current one:
//
//	for ref, err := range pagination.Drain(ctx, fetcher, firstURL, pagination.WithLogger(logger)) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(ref.Name)
//	}
//
// Pages are walked strictly in order; a failed page ends the sequence with
// its error after every item of the earlier pages has been yielded.
//
// BatchResolver loads the resources behind a page of references with a
// bounded worker count and returns them in the order of the references:
//
//	resolver := pagination.NewBatchResolver(pagination.DefaultConfig(), logger)
//	versions, err := pagination.ResolveAll(ctx, resolver, page.Results, load)
package pagination
