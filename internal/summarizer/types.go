package summarizer

const (
	// DefaultChunkSize is the chunk width in characters (runes).
	DefaultChunkSize = 8000
	// DefaultChunkWords is the word budget asked for per chunk summary.
	DefaultChunkWords = 150
	// DefaultFinalSummaryWords is the advisory length of the final summary.
	DefaultFinalSummaryWords = 500

	// NoChunkSummaries is the summary text when every chunk request failed.
	NoChunkSummaries = "Could not generate any summaries from chunks."
	// NoFinalSummary is the summary text when the refinement request failed.
	NoFinalSummary = "Could not generate final book summary."
)

// Summary is the outcome of one hierarchical summarization pass.
type Summary struct {
	Text string
	// Chunks is how many chunks the document was split into.
	Chunks int
	// Summarized is how many of those produced a chunk summary.
	Summarized int
	// Degraded is set when Text is a failure placeholder rather than
	// generated content.
	Degraded bool
}

type Options struct {
	ChunkSize         int
	ChunkWords        int
	FinalSummaryWords int
}

func (o *Options) applyDefaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkWords <= 0 {
		o.ChunkWords = DefaultChunkWords
	}
	if o.FinalSummaryWords <= 0 {
		o.FinalSummaryWords = DefaultFinalSummaryWords
	}
}
