package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-assist-rag/internal/logger"
	"car-assist-rag/internal/rag"
	"car-assist-rag/models"
)

// MonitorService periodically snapshots collection state so usage can
// be inspected over time.
type MonitorService struct {
	scheduler  *gocron.Scheduler
	db         *mongo.Database
	ragSvc     *rag.Service
	collection string
	interval   time.Duration
}

func NewMonitorService(db *mongo.Database, ragSvc *rag.Service, collection string, intervalMinutes int) *MonitorService {
	if intervalMinutes <= 0 {
		intervalMinutes = 15
	}
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &MonitorService{
		scheduler:  s,
		db:         db,
		ragSvc:     ragSvc,
		collection: collection,
		interval:   time.Duration(intervalMinutes) * time.Minute,
	}
}

func (m *MonitorService) Start() error {
	_, err := m.scheduler.Every(m.interval).Tag("collection-snapshot").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := m.Snapshot(ctx); err != nil {
			logger.Error("monitor snapshot failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	m.scheduler.StartAsync()
	logger.Info("monitor service started", "interval", m.interval.String())
	return nil
}

func (m *MonitorService) Stop() {
	m.scheduler.Stop()
}

// Snapshot captures the default collection's stats and the total
// message count into monitor_snapshots.
func (m *MonitorService) Snapshot(ctx context.Context) error {
	stats, err := m.ragSvc.CollectionStats(ctx, m.collection)
	if err != nil {
		return err
	}

	queriesTotal, err := m.db.Collection("messages").CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}

	snapshot := models.MonitorSnapshot{
		Collection:   stats,
		QueriesTotal: queriesTotal,
		Timestamp:    time.Now(),
	}
	_, err = m.db.Collection("monitor_snapshots").InsertOne(ctx, snapshot)
	return err
}

// RecentSnapshots returns the latest captured snapshots, newest first.
func (m *MonitorService) RecentSnapshots(ctx context.Context, limit int64) ([]models.MonitorSnapshot, error) {
	if limit <= 0 {
		limit = 24
	}
	cursor, err := m.db.Collection("monitor_snapshots").Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var snapshots []models.MonitorSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}
