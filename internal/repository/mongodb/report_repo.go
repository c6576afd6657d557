package mongodb

import (
	"context"
	"fmt"

	"smartsahuji/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportRepository archives generated daily reports.
type ReportRepository interface {
	SaveDailyReport(ctx context.Context, report model.DailyReport) error
}

// MongoReportRepository stores reports in the daily_reports collection.
type MongoReportRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewReportRepository connects to MongoDB and verifies the connection.
func NewReportRepository(ctx context.Context, uri, dbName string) (*MongoReportRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoReportRepository{
		client:   client,
		dbName:   dbName,
		collName: "daily_reports",
	}, nil
}

// SaveDailyReport upserts the report of one owner for one day, so a rerun of
// the job replaces instead of duplicating.
func (r *MongoReportRepository) SaveDailyReport(ctx context.Context, report model.DailyReport) error {
	collection := r.client.Database(r.dbName).Collection(r.collName)
	_, err := collection.ReplaceOne(ctx, reportFilter(report), report, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save daily report: %w", err)
	}
	return nil
}

// reportFilter selects the stored document of the same owner and day. The
// keys must match the bson tags of model.DailyReport.
func reportFilter(report model.DailyReport) bson.M {
	return bson.M{"owner_id": report.OwnerID, "day": report.Day}
}

// Close closes the MongoDB connection.
func (r *MongoReportRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
