package rag

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"car-assist-rag/internal/ai"
	"car-assist-rag/internal/logger"
	"car-assist-rag/internal/telemetry"
	"car-assist-rag/internal/vectorstore"
	"car-assist-rag/models"
)

// Service wires the pipeline stages together. Every dependency is
// injected; the service holds no hidden client state.
type Service struct {
	chunker   *Chunker
	rewriter  *Rewriter
	retriever *Retriever
	generator *Generator
	embedder  ai.Embedder
	store     vectorstore.Store
	topK      int
	metrics   *telemetry.Metrics

	// Inserts are serialized per collection; the store is not assumed
	// safe under concurrent writers to one collection.
	mu       sync.Mutex
	colLocks map[string]*sync.Mutex
}

type ServiceConfig struct {
	MaxChunkSize  int
	ChunkOverlap  int
	TopK          int
	HistoryWindow int
	RewriteGrowth int
}

func NewService(cfg ServiceConfig, embedder ai.Embedder, generator ai.TextGenerator, store vectorstore.Store, metrics *telemetry.Metrics) (*Service, error) {
	chunker, err := NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		chunker:   chunker,
		rewriter:  NewRewriter(generator, cfg.HistoryWindow, cfg.RewriteGrowth),
		retriever: NewRetriever(embedder, store),
		generator: NewGenerator(generator, cfg.HistoryWindow),
		embedder:  embedder,
		store:     store,
		topK:      topK,
		metrics:   metrics,
		colLocks:  make(map[string]*sync.Mutex),
	}, nil
}

// Query runs the synchronous answer pipeline: rewrite, retrieve,
// generate.
func (s *Service) Query(ctx context.Context, question, collection string, history []models.ConversationTurn) (models.RAGResponse, error) {
	start := time.Now()

	tracer := otel.Tracer("rag-service")
	ctx, span := tracer.Start(ctx, "rag.query")
	defer span.End()
	span.SetAttributes(attribute.String("rag.collection", collection))

	standalone := s.rewriter.Rewrite(ctx, question, history)

	retrieved, err := s.retriever.Retrieve(ctx, standalone, collection, s.topK)
	if err != nil {
		return models.RAGResponse{}, err
	}

	// The generator sees the user's original question; the rewrite only
	// steers retrieval.
	answer, err := s.generator.Generate(ctx, question, retrieved, history)
	if err != nil {
		return models.RAGResponse{}, err
	}

	elapsed := time.Since(start)
	s.metrics.RecordQuery(ctx, collection, elapsed.Seconds())
	logger.Info("query processed",
		"collection", collection,
		"retrieved", len(retrieved.Chunks),
		"elapsed_ms", elapsed.Milliseconds())

	return models.RAGResponse{
		Answer:          answer.Text,
		Sources:         answer.Sources,
		RetrievedChunks: len(retrieved.Chunks),
		ProcessingTime:  elapsed,
	}, nil
}

// Ingest chunks a document, embeds every chunk, and upserts the batch
// into the store. Embedding calls run sequentially; a single failed
// embedding aborts the ingest so a document is never half-indexed
// silently.
func (s *Service) Ingest(ctx context.Context, text, sourceID, collection string, metadata map[string]string) (models.IngestResult, error) {
	start := time.Now()

	tracer := otel.Tracer("rag-service")
	ctx, span := tracer.Start(ctx, "rag.ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("rag.collection", collection),
		attribute.String("rag.source", sourceID),
	)

	chunks := s.chunker.Chunk(text, sourceID, metadata)
	if len(chunks) == 0 {
		logger.Warn("document produced no chunks", "source", sourceID)
		return models.IngestResult{SourceID: sourceID}, nil
	}

	embedded := make([]models.EmbeddedChunk, 0, len(chunks))
	for _, ch := range chunks {
		vec, err := s.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return models.IngestResult{}, ai.Classify(ai.ServiceEmbedding, err)
		}
		embedded = append(embedded, models.EmbeddedChunk{Chunk: ch, Vector: vec})
	}

	lock := s.collectionLock(collection)
	lock.Lock()
	err := s.store.Upsert(ctx, collection, embedded)
	lock.Unlock()
	if err != nil {
		return models.IngestResult{}, err
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ChunksIngested.Add(ctx, int64(len(embedded)))
		s.metrics.IngestionDuration.Record(ctx, elapsed.Seconds())
	}
	logger.Info("document ingested",
		"source", sourceID,
		"collection", collection,
		"chunks", len(embedded),
		"elapsed_ms", elapsed.Milliseconds())

	return models.IngestResult{
		SourceID:      sourceID,
		ModelName:     metadata["model_name"],
		ChunksCreated: len(embedded),
		Elapsed:       elapsed,
		ElapsedMS:     elapsed.Milliseconds(),
	}, nil
}

// ClearCollection drops every chunk in the collection. Pair with
// re-ingestion to avoid duplicate content.
func (s *Service) ClearCollection(ctx context.Context, collection string) error {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()
	return s.store.DeleteCollection(ctx, collection)
}

// CollectionStats reports the store's view of a collection.
func (s *Service) CollectionStats(ctx context.Context, collection string) (models.CollectionStats, error) {
	return s.store.Stats(ctx, collection)
}

func (s *Service) collectionLock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.colLocks[collection]
	if !ok {
		lock = &sync.Mutex{}
		s.colLocks[collection] = lock
	}
	return lock
}
