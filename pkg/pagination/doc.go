// Package pagination provides the incremental list query over the PokeAPI
// Pokémon index.
//
// PokeAPI pages by offset and limit and signals continuation with a nullable
// "next" URL. A List walks the index in fixed windows of PageSize entries,
// merges each page into an ordered, deduplicated item slice and suppresses
// overlapping loads.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig("MyApp/1.0 (me@example.com)"))
//	list := pagination.NewList(c, logging.NewLogger("list"))
//	added, err := list.LoadMore(ctx)
//	state := list.Snapshot()
//
// The list:
//   - Starts empty at offset 0
//   - Ignores LoadNext while a load is pending or the index is exhausted
//   - Appends only ids it has not seen, in first-seen order
//   - Keeps accumulated items and the offset when a page fails
//   - Never retries; calling LoadNext again after a failure retries the same window
package pagination
