// Package watchlist holds the in-memory view of a fetched record list.
//
// Everything here is a pure function of its inputs: filtering, sorting and
// statistics are recomputed from the full list on every change, and State
// values are never mutated in place.
package watchlist
