/*
Package ngram builds n-gram frequency tables from token streams and turns them
into context-conditioned samplers for synthetic text generation.

A Table counts every contiguous n-gram (n in 1..3) of a token sequence. A Model
loads a Table and derives either a flat weighted distribution (unigrams) or a
context index mapping the previous n-1 tokens to their observed continuations.
A Sampler walks that index with weighted random choice, restarting from a fresh
context whenever the chain runs out of continuations.
*/
package ngram
