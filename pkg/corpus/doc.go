/*
Package corpus prepares and stores the source texts that markov models are
built from.

A Normalizer reads raw text and produces the single normalized blob the
model expects. A Library keeps named, already-normalized corpora in a SQLite
database together with a history of generation runs, so a corpus can be
imported once and generated from many times.
*/
package corpus
