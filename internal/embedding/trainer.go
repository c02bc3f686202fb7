package embedding

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/progress"
)

const (
	unigramTableSize = 1 << 20
	unigramPower     = 0.75
	minLearningRate  = 1e-4
)

// TrainerConfig holds skip-gram training hyperparameters
type TrainerConfig struct {
	Dimensions   int
	Window       int
	Epochs       int
	MinCount     int
	Negative     int
	LearningRate float64
	Subsample    float64
	Workers      int
	Seed         int64
}

// Trainer learns token vectors with skip-gram and negative sampling.
// Skip-gram is fixed: it handles the rare, domain-specific vocabulary of
// hearing transcripts better than the bag-of-context architecture.
type Trainer struct {
	cfg      TrainerConfig
	logger   *zap.Logger
	reporter progress.Reporter
}

// NewTrainer creates a trainer
func NewTrainer(cfg TrainerConfig, logger *zap.Logger, reporter progress.Reporter) *Trainer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Trainer{cfg: cfg, logger: logger, reporter: reporter}
}

// vocabulary is the token index for one training run
type vocabulary struct {
	tokens []string
	ids    map[string]int
	counts []int64
	total  int64
}

// Train learns a vector for every token occurring at least MinCount times.
// Tokens below the floor receive no vector; downstream stages treat them as
// unknown, zero-weight tokens rather than errors.
func (t *Trainer) Train(ctx context.Context, sentences [][]string) (*Space, error) {
	if len(sentences) == 0 {
		return nil, fmt.Errorf("training corpus is empty")
	}

	vocab := buildVocabulary(sentences, t.cfg.MinCount)
	if len(vocab.tokens) == 0 {
		return nil, fmt.Errorf("no token reaches the frequency floor of %d", t.cfg.MinCount)
	}

	t.logger.Info("vocabulary built",
		zap.Int("vocabulary", len(vocab.tokens)),
		zap.Int64("corpus_tokens", vocab.total),
		zap.Int("min_count", t.cfg.MinCount))

	corpus := encodeCorpus(sentences, vocab)
	table := buildUnigramTable(vocab)

	dim := t.cfg.Dimensions
	syn0 := make([]float32, len(vocab.tokens)*dim)
	syn1 := make([]float32, len(vocab.tokens)*dim)
	initRNG := rand.New(rand.NewSource(t.cfg.Seed))
	for i := range syn0 {
		syn0[i] = (initRNG.Float32() - 0.5) / float32(dim)
	}

	totalWork := int64(t.cfg.Epochs) * vocab.total
	var processed atomic.Int64

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if t.reporter != nil {
			t.reporter.Start(fmt.Sprintf("embedding epoch %d/%d", epoch+1, t.cfg.Epochs), len(corpus))
		}

		var wg sync.WaitGroup
		chunk := (len(corpus) + t.cfg.Workers - 1) / t.cfg.Workers
		errs := make([]error, t.cfg.Workers)

		for w := 0; w < t.cfg.Workers; w++ {
			start := w * chunk
			if start >= len(corpus) {
				break
			}
			end := start + chunk
			if end > len(corpus) {
				end = len(corpus)
			}

			wg.Add(1)
			go func(worker, start, end, epoch int) {
				defer wg.Done()
				rng := rand.New(rand.NewSource(t.cfg.Seed + int64(epoch)*int64(t.cfg.Workers) + int64(worker) + 1))
				errs[worker] = t.trainChunk(ctx, corpus[start:end], vocab, table, syn0, syn1, rng, &processed, totalWork)
			}(w, start, end, epoch)
		}
		wg.Wait()

		if t.reporter != nil {
			t.reporter.Finish()
		}
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	space := NewSpace(dim)
	for id, token := range vocab.tokens {
		vec := make([]float32, dim)
		copy(vec, syn0[id*dim:(id+1)*dim])
		if err := space.Add(token, vec, vocab.counts[id]); err != nil {
			return nil, err
		}
	}

	t.logger.Info("embedding training complete",
		zap.Int("vocabulary", space.Size()),
		zap.Int("dimensions", dim),
		zap.Int("epochs", t.cfg.Epochs))

	return space, nil
}

// trainChunk runs SGD over one worker's share of the corpus. Updates to the
// shared weight slices are lock-free in the hogwild style; races between
// workers are tolerated noise.
func (t *Trainer) trainChunk(ctx context.Context, chunk [][]int, vocab *vocabulary, table []int,
	syn0, syn1 []float32, rng *rand.Rand, processed *atomic.Int64, totalWork int64) error {

	dim := t.cfg.Dimensions
	grad := make([]float32, dim)
	subThreshold := t.cfg.Subsample * float64(vocab.total)

	for si, sentence := range chunk {
		if si%1024 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		kept := sentence
		if t.cfg.Subsample > 0 {
			kept = kept[:0:0]
			for _, id := range sentence {
				cnt := float64(vocab.counts[id])
				keep := (math.Sqrt(cnt/subThreshold) + 1) * subThreshold / cnt
				if keep >= 1 || rng.Float64() < keep {
					kept = append(kept, id)
				}
			}
		}

		done := processed.Add(int64(len(sentence)))
		alpha := t.cfg.LearningRate * (1 - float64(done)/float64(totalWork+1))
		if alpha < t.cfg.LearningRate*minLearningRate {
			alpha = t.cfg.LearningRate * minLearningRate
		}

		for center := range kept {
			shrink := rng.Intn(t.cfg.Window)
			lo := center - t.cfg.Window + shrink
			hi := center + t.cfg.Window - shrink
			if lo < 0 {
				lo = 0
			}
			if hi >= len(kept) {
				hi = len(kept) - 1
			}

			for pos := lo; pos <= hi; pos++ {
				if pos == center {
					continue
				}
				t.updatePair(kept[center], kept[pos], alpha, table, syn0, syn1, grad, rng)
			}
		}

		if t.reporter != nil {
			t.reporter.Increment()
		}
	}

	return nil
}

// updatePair applies one skip-gram update: the context word is the positive
// example, Negative words drawn from the unigram table are negatives.
func (t *Trainer) updatePair(center, contextWord int, alpha float64, table []int,
	syn0, syn1 []float32, grad []float32, rng *rand.Rand) {

	dim := t.cfg.Dimensions
	in := syn0[center*dim : (center+1)*dim]
	for i := range grad {
		grad[i] = 0
	}

	for n := 0; n <= t.cfg.Negative; n++ {
		var target int
		var label float64
		if n == 0 {
			target = contextWord
			label = 1
		} else {
			target = table[rng.Intn(len(table))]
			if target == contextWord {
				continue
			}
			label = 0
		}

		out := syn1[target*dim : (target+1)*dim]
		var dot float64
		for i := range in {
			dot += float64(in[i]) * float64(out[i])
		}
		g := float32((label - sigmoid(dot)) * alpha)

		for i := range in {
			grad[i] += g * out[i]
			out[i] += g * in[i]
		}
	}

	for i := range in {
		in[i] += grad[i]
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// buildVocabulary counts token frequencies and keeps tokens at or above the
// frequency floor, indexed in lexical order for deterministic IDs.
func buildVocabulary(sentences [][]string, minCount int) *vocabulary {
	counts := make(map[string]int64)
	for _, sentence := range sentences {
		for _, token := range sentence {
			counts[token]++
		}
	}

	var tokens []string
	for token, count := range counts {
		if count >= int64(minCount) {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)

	vocab := &vocabulary{
		tokens: tokens,
		ids:    make(map[string]int, len(tokens)),
		counts: make([]int64, len(tokens)),
	}
	for id, token := range tokens {
		vocab.ids[token] = id
		vocab.counts[id] = counts[token]
		vocab.total += counts[token]
	}

	return vocab
}

// encodeCorpus maps sentences to vocabulary IDs, dropping out-of-vocabulary
// tokens and empty sentences
func encodeCorpus(sentences [][]string, vocab *vocabulary) [][]int {
	corpus := make([][]int, 0, len(sentences))
	for _, sentence := range sentences {
		encoded := make([]int, 0, len(sentence))
		for _, token := range sentence {
			if id, ok := vocab.ids[token]; ok {
				encoded = append(encoded, id)
			}
		}
		if len(encoded) > 0 {
			corpus = append(corpus, encoded)
		}
	}
	return corpus
}

// buildUnigramTable builds the smoothed negative-sampling table
func buildUnigramTable(vocab *vocabulary) []int {
	table := make([]int, unigramTableSize)

	var norm float64
	for _, count := range vocab.counts {
		norm += math.Pow(float64(count), unigramPower)
	}

	id := 0
	cum := math.Pow(float64(vocab.counts[0]), unigramPower) / norm
	for i := range table {
		table[i] = id
		if float64(i)/float64(unigramTableSize) > cum && id < len(vocab.counts)-1 {
			id++
			cum += math.Pow(float64(vocab.counts[id]), unigramPower) / norm
		}
	}

	return table
}
