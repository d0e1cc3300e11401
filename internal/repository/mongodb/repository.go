package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petroflow/petroflow/internal/domain/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the storage operations the analysis pipeline needs.
type Repository interface {
	ListProjectIDs(ctx context.Context) ([]string, error)
	ListWells(ctx context.Context, projectID string) ([]models.Well, error)
	GetWell(ctx context.Context, wellID string) (*models.Well, error)
	ListProduction(ctx context.Context, wellID string) ([]models.ProductionRecord, error)
	SaveAnalysis(ctx context.Context, analysis *models.DCAAnalysis) error
	ListAnalyses(ctx context.Context, wellID string) ([]models.DCAAnalysis, error)
	GetAnalysis(ctx context.Context, analysisID string) (*models.DCAAnalysis, error)
	UpdateMonteCarlo(ctx context.Context, analysisID string, result *models.MonteCarloResult) error
}

// MongoDBRepository implements Repository on MongoDB collections.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

const (
	wellsCollection      = "wells"
	productionCollection = "production_records"
	analysesCollection   = "dca_analyses"
)

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName}, nil
}

func (r *MongoDBRepository) coll(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// ListProjectIDs returns the distinct project identifiers with wells on file.
func (r *MongoDBRepository) ListProjectIDs(ctx context.Context) ([]string, error) {
	raw, err := r.coll(wellsCollection).Distinct(ctx, "project_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list project ids: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// ListWells returns all wells belonging to a project.
func (r *MongoDBRepository) ListWells(ctx context.Context, projectID string) ([]models.Well, error) {
	cursor, err := r.coll(wellsCollection).Find(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list wells for project %s: %w", projectID, err)
	}
	var wells []models.Well
	if err := cursor.All(ctx, &wells); err != nil {
		return nil, fmt.Errorf("failed to decode wells: %w", err)
	}
	return wells, nil
}

// GetWell fetches a single well by ID.
func (r *MongoDBRepository) GetWell(ctx context.Context, wellID string) (*models.Well, error) {
	var well models.Well
	err := r.coll(wellsCollection).FindOne(ctx, bson.M{"_id": wellID}).Decode(&well)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("well %s: %w", wellID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch well %s: %w", wellID, err)
	}
	return &well, nil
}

// ListProduction returns the full production history of a well ordered by date.
func (r *MongoDBRepository) ListProduction(ctx context.Context, wellID string) ([]models.ProductionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "production_date", Value: 1}})
	cursor, err := r.coll(productionCollection).Find(ctx, bson.M{"well_id": wellID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list production for well %s: %w", wellID, err)
	}
	var records []models.ProductionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode production records: %w", err)
	}
	return records, nil
}

// SaveAnalysis inserts a new analysis document and marks earlier completed
// analyses for the same well, fluid and model as superseded. Reruns never
// mutate a stored analysis.
func (r *MongoDBRepository) SaveAnalysis(ctx context.Context, analysis *models.DCAAnalysis) error {
	_, err := r.coll(analysesCollection).UpdateMany(ctx,
		bson.M{
			"well_id":    analysis.WellID,
			"fluid_type": analysis.FluidType,
			"model_type": analysis.ModelType,
			"status":     models.AnalysisStatusCompleted,
		},
		bson.M{"$set": bson.M{"status": models.AnalysisStatusSuperseded, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to supersede prior analyses: %w", err)
	}

	if _, err := r.coll(analysesCollection).InsertOne(ctx, analysis); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// ListAnalyses returns every analysis of a well, newest first.
func (r *MongoDBRepository) ListAnalyses(ctx context.Context, wellID string) ([]models.DCAAnalysis, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll(analysesCollection).Find(ctx, bson.M{"well_id": wellID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for well %s: %w", wellID, err)
	}
	var analyses []models.DCAAnalysis
	if err := cursor.All(ctx, &analyses); err != nil {
		return nil, fmt.Errorf("failed to decode analyses: %w", err)
	}
	return analyses, nil
}

// GetAnalysis fetches a single analysis by ID.
func (r *MongoDBRepository) GetAnalysis(ctx context.Context, analysisID string) (*models.DCAAnalysis, error) {
	var analysis models.DCAAnalysis
	err := r.coll(analysesCollection).FindOne(ctx, bson.M{"_id": analysisID}).Decode(&analysis)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("analysis %s: %w", analysisID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analysis %s: %w", analysisID, err)
	}
	return &analysis, nil
}

// UpdateMonteCarlo attaches a freshly computed uncertainty result to an
// existing analysis. The Monte Carlo block is the one derived field that is
// recomputed in place rather than superseded.
func (r *MongoDBRepository) UpdateMonteCarlo(ctx context.Context, analysisID string, result *models.MonteCarloResult) error {
	res, err := r.coll(analysesCollection).UpdateOne(ctx,
		bson.M{"_id": analysisID},
		bson.M{"$set": bson.M{"monte_carlo": result, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update monte carlo result: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("analysis %s: %w", analysisID, ErrNotFound)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
