package regressor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Encoder produces sentence embeddings from a frozen contextual model.
// The regression head is the only trainable part of the pipeline's model;
// the encoder is inference-only.
type Encoder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
	ModelID() string
	Close() error
}

// OrtEncoderConfig configures the ONNX Runtime encoder
type OrtEncoderConfig struct {
	ModelPath     string
	TokenizerPath string
	OrtLibrary    string
	MaxSeqLen     int
}

// OrtEncoder runs a pretrained transformer encoder through ONNX Runtime and
// mean-pools the final hidden states into a sentence embedding.
type OrtEncoder struct {
	cfg     OrtEncoderConfig
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
	dim     int
	mu      sync.Mutex
}

var ortInitOnce sync.Once
var ortInitErr error

// NewOrtEncoder loads the tokenizer and opens an inference session
func NewOrtEncoder(cfg OrtEncoderConfig) (*OrtEncoder, error) {
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 128
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	ortInitOnce.Do(func() {
		if cfg.OrtLibrary != "" {
			ort.SetSharedLibraryPath(cfg.OrtLibrary)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", ortInitErr)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open encoder session: %w", err)
	}

	return &OrtEncoder{cfg: cfg, tk: tk, session: session}, nil
}

// ModelID returns the encoder checkpoint name
func (e *OrtEncoder) ModelID() string {
	return filepath.Base(e.cfg.ModelPath)
}

// Dim returns the embedding dimensionality. Zero until the first Embed call
// has observed the model's hidden size.
func (e *OrtEncoder) Dim() int {
	return e.dim
}

// Close releases the inference session
func (e *OrtEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}

// Embed encodes a batch of sentences. Sequences are truncated or padded to
// MaxSeqLen; pooling is attention-mask aware so padding never dilutes the
// embedding.
func (e *OrtEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("encoder is closed")
	}

	batch := len(texts)
	seqLen := e.cfg.MaxSeqLen
	inputIDs := make([]int64, batch*seqLen)
	attention := make([]int64, batch*seqLen)

	for i, text := range texts {
		enc, err := e.tk.EncodeSingle(text, true)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize sentence: %w", err)
		}
		ids := enc.Ids
		if len(ids) > seqLen {
			ids = ids[:seqLen]
		}
		for j, id := range ids {
			inputIDs[i*seqLen+j] = int64(id)
			attention[i*seqLen+j] = 1
		}
	}

	shape := ort.NewShape(int64(batch), int64(seqLen))
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attention)
	if err != nil {
		return nil, fmt.Errorf("failed to create mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("encoder inference failed: %w", err)
	}
	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected encoder output type %T", outputs[0])
	}
	defer hidden.Destroy()

	outShape := hidden.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unexpected encoder output shape %v", outShape)
	}
	dim := int(outShape[2])
	e.dim = dim
	states := hidden.GetData()

	embeddings := make([][]float32, batch)
	for i := 0; i < batch; i++ {
		pooled := make([]float32, dim)
		var count float32
		for j := 0; j < seqLen; j++ {
			if attention[i*seqLen+j] == 0 {
				continue
			}
			count++
			base := (i*seqLen + j) * dim
			for d := 0; d < dim; d++ {
				pooled[d] += states[base+d]
			}
		}
		if count > 0 {
			inv := 1 / count
			for d := range pooled {
				pooled[d] *= inv
			}
		}
		embeddings[i] = pooled
	}

	return embeddings, nil
}
