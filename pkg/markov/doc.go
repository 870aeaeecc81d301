/*
Package markov generates text that statistically resembles a source corpus
using a character-level Markov model whose order adapts to the data.

Build expands the model one order at a time and keeps only ambiguous
contexts, those followed by two or more distinct characters in the corpus.
It stops at the first order that adds nothing, so the highest useful order
is discovered rather than configured. Contexts that were dropped are
answered by finding them verbatim in the corpus, with a per-Sampler search
cursor that makes consecutive lookups cheap.

	model := markov.BuildString(text)
	out, err := model.Generate(ctx, markov.WithLength(500))

A Model is immutable and safe for concurrent use. Samplers, and the
generation runs built on them, are not; GenerateMany gives each run its own.
*/
package markov
