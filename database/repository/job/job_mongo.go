package jobRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bottlebank/database"
	"bottlebank/models"
)

// MongoJobRepo implements JobRepository using MongoDB.
type MongoJobRepo struct {
	coll       *mongo.Collection
	pickupColl *mongo.Collection
	walletColl *mongo.Collection
	userColl   *mongo.Collection
}

// NewMongoJobRepo creates a new instance of JobRepository using MongoDB.
func NewMongoJobRepo() JobRepository {
	repo := &MongoJobRepo{
		coll:       database.Collection("jobs"),
		pickupColl: database.Collection("pickups"),
		walletColl: database.Collection("wallets"),
		userColl:   database.Collection("users"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create job indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoJobRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "hostId", Value: 1}}},
		{Keys: bson.D{{Key: "claimedById", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// unclaimedFilter matches both canonical and legacy spellings of the
// unclaimed state so pre-migration documents remain claimable.
func unclaimedFilter() bson.M {
	return bson.M{"$in": bson.A{string(models.StatusAvailable), "posted"}}
}

// Create inserts a new job document.
func (r *MongoJobRepo) Create(ctx context.Context, job *models.Job) error {
	if _, err := r.coll.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its unique ID. The status is normalized at
// the decode boundary so callers only ever see canonical values.
func (r *MongoJobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&job); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch job with id %s: %w", id, err)
	}
	job.Status = models.NormalizeStatus(job.Status)
	return &job, nil
}

// GetAll retrieves all jobs.
func (r *MongoJobRepo) GetAll(ctx context.Context) ([]models.Job, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []models.Job
	for cursor.Next(ctx) {
		var j models.Job
		if err := cursor.Decode(&j); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		j.Status = models.NormalizeStatus(j.Status)
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Delete removes a job document by its ID.
func (r *MongoJobRepo) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete job with id %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("job with id %s not found", id)
	}
	return nil
}

// TryClaim performs the compare-and-swap claim write: the update only
// matches while the job is unclaimed and unexpired, so two racing
// collectors cannot both succeed.
func (r *MongoJobRepo) TryClaim(ctx context.Context, jobID, collectorID string, now time.Time) (bool, error) {
	filter := bson.M{
		"id":          jobID,
		"status":      unclaimedFilter(),
		"claimedById": bson.M{"$exists": false},
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$exists": false}},
			bson.M{"expiresAt": bson.M{"$gt": now}},
		},
	}
	update := bson.M{"$set": bson.M{
		"status":      models.StatusClaimed,
		"claimedById": collectorID,
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}
	return result.MatchedCount > 0, nil
}

// Release reverts a claimed job back to available, using a field-delete
// to clear the claim reference.
func (r *MongoJobRepo) Release(ctx context.Context, jobID, collectorID string) (bool, error) {
	filter := bson.M{
		"id":          jobID,
		"status":      bson.M{"$in": bson.A{string(models.StatusClaimed), "matched"}},
		"claimedById": collectorID,
	}
	update := bson.M{
		"$set":   bson.M{"status": models.StatusAvailable},
		"$unset": bson.M{"claimedById": ""},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to release job %s: %w", jobID, err)
	}
	return result.MatchedCount > 0, nil
}

// SetStatus conditionally moves a job between statuses.
func (r *MongoJobRepo) SetStatus(ctx context.Context, jobID, collectorID string, from []models.JobStatus, to models.JobStatus, clearClaim bool) (bool, error) {
	fromValues := bson.A{}
	for _, s := range from {
		fromValues = append(fromValues, string(s))
		// accept legacy spellings alongside canonical ones
		switch s {
		case models.StatusAvailable:
			fromValues = append(fromValues, "posted")
		case models.StatusClaimed:
			fromValues = append(fromValues, "matched")
		}
	}

	filter := bson.M{"id": jobID, "status": bson.M{"$in": fromValues}}
	if collectorID != "" {
		filter["claimedById"] = collectorID
	}

	update := bson.M{"$set": bson.M{"status": to}}
	if clearClaim {
		update["$unset"] = bson.M{"claimedById": ""}
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to set status of job %s: %w", jobID, err)
	}
	return result.MatchedCount > 0, nil
}

// FindActiveClaim returns the job the collector currently holds, or nil.
func (r *MongoJobRepo) FindActiveClaim(ctx context.Context, collectorID string) (*models.Job, error) {
	filter := bson.M{
		"claimedById": collectorID,
		"status": bson.M{"$in": bson.A{
			string(models.StatusClaimed), "matched",
			string(models.StatusInProgress), string(models.StatusArrived),
		}},
	}
	var job models.Job
	if err := r.coll.FindOne(ctx, filter).Decode(&job); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up active claim for %s: %w", collectorID, err)
	}
	job.Status = models.NormalizeStatus(job.Status)
	return &job, nil
}

// SetFeedback records host feedback once; the filter only matches while
// no feedback document is embedded yet, which makes duplicates no-ops.
func (r *MongoJobRepo) SetFeedback(ctx context.Context, jobID string, fb models.HostFeedback) (bool, error) {
	filter := bson.M{
		"id":       jobID,
		"feedback": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"feedback": fb}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to set feedback on job %s: %w", jobID, err)
	}
	return result.MatchedCount > 0, nil
}

// MarkExpired expires an unclaimed job past its expiry. Repeated sweeps
// over an already-expired job match nothing and return false, nil.
func (r *MongoJobRepo) MarkExpired(ctx context.Context, jobID string, now time.Time) (bool, error) {
	filter := bson.M{
		"id":        jobID,
		"status":    unclaimedFilter(),
		"expiresAt": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": models.StatusExpired}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to expire job %s: %w", jobID, err)
	}
	return result.MatchedCount > 0, nil
}

// FindExpiryCandidates lists unclaimed jobs whose expiry has passed.
func (r *MongoJobRepo) FindExpiryCandidates(ctx context.Context, now time.Time) ([]models.Job, error) {
	filter := bson.M{
		"status":    unclaimedFilter(),
		"expiresAt": bson.M{"$lte": now},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find expiry candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []models.Job
	for cursor.Next(ctx) {
		var j models.Job
		if err := cursor.Decode(&j); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		j.Status = models.NormalizeStatus(j.Status)
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// CompleteJob commits the completion inside one Mongo transaction so a job
// can never be marked completed without its pickup record, or vice versa.
// Collector counters use field-level increments.
func (r *MongoJobRepo) CompleteJob(ctx context.Context, job *models.Job, pickup *models.PickupRecord, txn *models.WalletTransaction) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{
			"id":          job.ID,
			"claimedById": pickup.CollectorID,
			"status": bson.M{"$in": bson.A{
				string(models.StatusClaimed), "matched",
				string(models.StatusInProgress), string(models.StatusArrived),
			}},
		}
		update := bson.M{"$set": bson.M{
			"status":        models.StatusCompleted,
			"bottleCount":   job.BottleCount,
			"aiConfidence":  job.AIConfidence,
			"materials":     job.Materials,
			"proofPhotoIds": job.ProofPhotoIDs,
		}}
		res, err := r.coll.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("update job failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("job %s is not held by collector %s", job.ID, pickup.CollectorID)
		}

		if _, err := r.pickupColl.InsertOne(sc, pickup); err != nil {
			return fmt.Errorf("insert pickup record failed: %w", err)
		}
		if _, err := r.walletColl.InsertOne(sc, txn); err != nil {
			return fmt.Errorf("insert wallet transaction failed: %w", err)
		}

		userUpdate := bson.M{"$inc": bson.M{
			"totalBottles":  pickup.BottleCount,
			"totalEarnings": pickup.CollectorPayout,
		}}
		if _, err := r.userColl.UpdateOne(sc, bson.M{"id": pickup.CollectorID}, userUpdate); err != nil {
			return fmt.Errorf("increment collector counters failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("completion transaction failed: %w", err)
	}
	return nil
}

// Watch opens a change stream on the jobs collection. Events carry only
// the entity id; consumers re-read the canonical collection.
func (r *MongoJobRepo) Watch(ctx context.Context) (<-chan models.ChangeEvent, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.coll.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	out := make(chan models.ChangeEvent, 64)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var change struct {
				OperationType string `bson:"operationType"`
				FullDocument  struct {
					ID string `bson:"id"`
				} `bson:"fullDocument"`
			}
			if err := stream.Decode(&change); err != nil {
				continue
			}

			ev := models.ChangeEvent{Collection: "jobs", EntityID: change.FullDocument.ID}
			switch change.OperationType {
			case "insert":
				ev.Kind = models.ChangeCreated
			case "delete":
				ev.Kind = models.ChangeDeleted
			default:
				ev.Kind = models.ChangeUpdated
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
