// Package localRepo is the in-memory fallback backend. A single Store backs
// all collections so cross-collection writes (job completion) can commit
// under one lock, mirroring the transactional guarantees of the remote
// backend. Sessions run against either this backend or Mongo, never both.
package localRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	jobRepo "bottlebank/database/repository/job"
	pickupRepo "bottlebank/database/repository/pickup"
	userRepo "bottlebank/database/repository/user"
	walletRepo "bottlebank/database/repository/wallet"
	"bottlebank/models"
)

// Store holds every collection of the local backend. All mutations take the
// store lock, which serializes writers the way a single mutation queue would.
type Store struct {
	mu sync.RWMutex

	jobs     map[string]*models.Job
	jobOrder []string

	pickups     map[string]*models.PickupRecord
	pickupOrder []string

	users     map[string]*models.UserProfile
	userOrder []string

	wallets map[string][]models.WalletTransaction

	subMu   sync.Mutex
	subs    map[int]chan models.ChangeEvent
	nextSub int

	// walletCache, when set, persists each user's ledger as a JSON blob.
	walletCache *redis.Client
}

// NewStore creates an empty local store. The redis client is optional; when
// nil, wallet ledgers live only in memory.
func NewStore(walletCache *redis.Client) *Store {
	return &Store{
		jobs:        make(map[string]*models.Job),
		pickups:     make(map[string]*models.PickupRecord),
		users:       make(map[string]*models.UserProfile),
		wallets:     make(map[string][]models.WalletTransaction),
		subs:        make(map[int]chan models.ChangeEvent),
		walletCache: walletCache,
	}
}

// Jobs returns the job repository view of the store.
func (s *Store) Jobs() jobRepo.JobRepository { return &jobStore{s} }

// Pickups returns the pickup repository view of the store.
func (s *Store) Pickups() pickupRepo.PickupRepository { return &pickupStore{s} }

// Users returns the user repository view of the store.
func (s *Store) Users() userRepo.UserRepository { return &userStore{s} }

// Wallets returns the wallet repository view of the store.
func (s *Store) Wallets() walletRepo.WalletRepository { return &walletStore{s} }

// emit delivers a change event to all subscribers without blocking writers:
// a subscriber that falls behind misses the event and must re-read anyway.
func (s *Store) emit(ev models.ChangeEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Store) subscribe(ctx context.Context) <-chan models.ChangeEvent {
	ch := make(chan models.ChangeEvent, 64)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
		close(ch)
	}()
	return ch
}

func (s *Store) persistWallet(ctx context.Context, userID string) {
	if s.walletCache == nil {
		return
	}
	blob, err := json.Marshal(s.wallets[userID])
	if err != nil {
		return
	}
	s.walletCache.Set(ctx, "wallet:"+userID, blob, 0)
}

func (s *Store) loadWalletLocked(ctx context.Context, userID string) {
	if s.walletCache == nil {
		return
	}
	if _, ok := s.wallets[userID]; ok {
		return
	}
	blob, err := s.walletCache.Get(ctx, "wallet:"+userID).Bytes()
	if err != nil {
		return
	}
	var txns []models.WalletTransaction
	if err := json.Unmarshal(blob, &txns); err != nil {
		return
	}
	s.wallets[userID] = txns
}

func cloneJob(j *models.Job) *models.Job {
	cp := *j
	if j.ExpiresAt != nil {
		t := *j.ExpiresAt
		cp.ExpiresAt = &t
	}
	if j.AIConfidence != nil {
		c := *j.AIConfidence
		cp.AIConfidence = &c
	}
	if j.Materials != nil {
		m := *j.Materials
		cp.Materials = &m
	}
	if j.Feedback != nil {
		f := *j.Feedback
		cp.Feedback = &f
	}
	cp.ProofPhotoIDs = append([]string(nil), j.ProofPhotoIDs...)
	return &cp
}

// --- job view ---

type jobStore struct{ *Store }

func (s *jobStore) Create(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	if _, exists := s.jobs[job.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job with id %s already exists", job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	s.jobOrder = append(s.jobOrder, job.ID)
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "jobs", EntityID: job.ID, Kind: models.ChangeCreated})
	return nil
}

func (s *jobStore) GetByID(ctx context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return cloneJob(j), nil
}

func (s *jobStore) GetAll(ctx context.Context) ([]models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]models.Job, 0, len(s.jobOrder))
	for _, id := range s.jobOrder {
		if j, ok := s.jobs[id]; ok {
			jobs = append(jobs, *cloneJob(j))
		}
	}
	return jobs, nil
}

func (s *jobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.jobs[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("job with id %s not found", id)
	}
	delete(s.jobs, id)
	for i, jid := range s.jobOrder {
		if jid == id {
			s.jobOrder = append(s.jobOrder[:i], s.jobOrder[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "jobs", EntityID: id, Kind: models.ChangeDeleted})
	return nil
}

func (s *jobStore) TryClaim(ctx context.Context, jobID, collectorID string, now time.Time) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok || !j.Status.IsClaimable() || j.ClaimedByID != "" || j.Expired(now) {
		s.mu.Unlock()
		return false, nil
	}
	j.Status = models.StatusClaimed
	j.ClaimedByID = collectorID
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	return true, nil
}

func (s *jobStore) Release(ctx context.Context, jobID, collectorID string) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok || models.NormalizeStatus(j.Status) != models.StatusClaimed || j.ClaimedByID != collectorID {
		s.mu.Unlock()
		return false, nil
	}
	j.Status = models.StatusAvailable
	j.ClaimedByID = ""
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	return true, nil
}

func (s *jobStore) SetStatus(ctx context.Context, jobID, collectorID string, from []models.JobStatus, to models.JobStatus, clearClaim bool) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	if collectorID != "" && j.ClaimedByID != collectorID {
		s.mu.Unlock()
		return false, nil
	}
	matched := false
	for _, f := range from {
		if models.NormalizeStatus(j.Status) == models.NormalizeStatus(f) {
			matched = true
			break
		}
	}
	if !matched {
		s.mu.Unlock()
		return false, nil
	}
	j.Status = to
	if clearClaim {
		j.ClaimedByID = ""
	}
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	return true, nil
}

func (s *jobStore) FindActiveClaim(ctx context.Context, collectorID string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.jobOrder {
		j := s.jobs[id]
		if j.ClaimedByID == collectorID && j.Status.HasActiveClaim() {
			return cloneJob(j), nil
		}
	}
	return nil, nil
}

func (s *jobStore) SetFeedback(ctx context.Context, jobID string, fb models.HostFeedback) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok || j.Feedback != nil {
		s.mu.Unlock()
		return false, nil
	}
	j.Feedback = &fb
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	return true, nil
}

func (s *jobStore) MarkExpired(ctx context.Context, jobID string, now time.Time) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok || !j.Status.IsClaimable() || !j.Expired(now) {
		s.mu.Unlock()
		return false, nil
	}
	j.Status = models.StatusExpired
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	return true, nil
}

func (s *jobStore) FindExpiryCandidates(ctx context.Context, now time.Time) ([]models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobs []models.Job
	for _, id := range s.jobOrder {
		j := s.jobs[id]
		if j.Status.IsClaimable() && j.Expired(now) {
			jobs = append(jobs, *cloneJob(j))
		}
	}
	return jobs, nil
}

func (s *jobStore) CompleteJob(ctx context.Context, job *models.Job, pickup *models.PickupRecord, txn *models.WalletTransaction) error {
	s.mu.Lock()
	j, ok := s.jobs[job.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("job with id %s not found", job.ID)
	}
	if j.ClaimedByID != pickup.CollectorID || !j.Status.HasActiveClaim() {
		s.mu.Unlock()
		return fmt.Errorf("job %s is not held by collector %s", job.ID, pickup.CollectorID)
	}
	u, ok := s.users[pickup.CollectorID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("user with id %s not found", pickup.CollectorID)
	}

	// Commit everything under the single store lock.
	j.Status = models.StatusCompleted
	j.BottleCount = job.BottleCount
	j.AIConfidence = job.AIConfidence
	j.Materials = job.Materials
	j.ProofPhotoIDs = append([]string(nil), job.ProofPhotoIDs...)

	rec := *pickup
	s.pickups[rec.ID] = &rec
	s.pickupOrder = append(s.pickupOrder, rec.ID)

	s.loadWalletLocked(ctx, txn.UserID)
	s.wallets[txn.UserID] = append(s.wallets[txn.UserID], *txn)
	s.persistWallet(ctx, txn.UserID)

	u.TotalBottles += pickup.BottleCount
	u.TotalEarnings += pickup.CollectorPayout
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "jobs", EntityID: job.ID, Kind: models.ChangeUpdated})
	s.emit(models.ChangeEvent{Collection: "pickups", EntityID: rec.ID, Kind: models.ChangeCreated})
	s.emit(models.ChangeEvent{Collection: "wallets", EntityID: txn.ID, Kind: models.ChangeCreated})
	s.emit(models.ChangeEvent{Collection: "users", EntityID: u.ID, Kind: models.ChangeUpdated})
	return nil
}

func (s *jobStore) Watch(ctx context.Context) (<-chan models.ChangeEvent, error) {
	return s.subscribe(ctx), nil
}

// --- pickup view ---

type pickupStore struct{ *Store }

func (s *pickupStore) Create(ctx context.Context, rec *models.PickupRecord) error {
	s.mu.Lock()
	if _, exists := s.pickups[rec.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("pickup record %s already exists", rec.ID)
	}
	cp := *rec
	s.pickups[rec.ID] = &cp
	s.pickupOrder = append(s.pickupOrder, rec.ID)
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "pickups", EntityID: rec.ID, Kind: models.ChangeCreated})
	return nil
}

func (s *pickupStore) GetByJobID(ctx context.Context, jobID string) (*models.PickupRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.pickupOrder {
		if r := s.pickups[id]; r.JobID == jobID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *pickupStore) ListByCollector(ctx context.Context, collectorID string) ([]models.PickupRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []models.PickupRecord
	// newest first
	for i := len(s.pickupOrder) - 1; i >= 0; i-- {
		if r := s.pickups[s.pickupOrder[i]]; r.CollectorID == collectorID {
			records = append(records, *r)
		}
	}
	return records, nil
}

func (s *pickupStore) ListAll(ctx context.Context) ([]models.PickupRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.PickupRecord, 0, len(s.pickupOrder))
	for _, id := range s.pickupOrder {
		records = append(records, *s.pickups[id])
	}
	return records, nil
}

// --- user view ---

type userStore struct{ *Store }

func (s *userStore) Create(ctx context.Context, user *models.UserProfile) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.JoinedAt.IsZero() {
		user.JoinedAt = now
	}

	s.mu.Lock()
	if _, exists := s.users[user.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("user with id %s already exists", user.ID)
	}
	cp := *user
	s.users[user.ID] = &cp
	s.userOrder = append(s.userOrder, user.ID)
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "users", EntityID: user.ID, Kind: models.ChangeCreated})
	return nil
}

func (s *userStore) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.userOrder {
		if u := s.users[id]; u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *userStore) GetAll(ctx context.Context) ([]models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.UserProfile, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, *s.users[id])
	}
	return users, nil
}

func (s *userStore) Update(ctx context.Context, user *models.UserProfile) error {
	s.mu.Lock()
	existing, ok := s.users[user.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("user with id %s not found", user.ID)
	}
	user.UpdatedAt = time.Now()
	// Preserve aggregator-owned fields and counters.
	user.Rating = existing.Rating
	user.ReviewCount = existing.ReviewCount
	user.OnTimeRate = existing.OnTimeRate
	user.ReliabilityScore = existing.ReliabilityScore
	user.TotalBottles = existing.TotalBottles
	user.TotalEarnings = existing.TotalEarnings
	cp := *user
	s.users[user.ID] = &cp
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "users", EntityID: user.ID, Kind: models.ChangeUpdated})
	return nil
}

func (s *userStore) UpdateAggregates(ctx context.Context, id string, agg models.RatingAggregates) error {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("user with id %s not found", id)
	}
	u.Rating = agg.Rating
	u.ReviewCount = agg.ReviewCount
	u.OnTimeRate = agg.OnTimeRate
	u.ReliabilityScore = agg.ReliabilityScore
	u.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "users", EntityID: id, Kind: models.ChangeUpdated})
	return nil
}

func (s *userStore) IncrementCounters(ctx context.Context, id string, bottles int, earnings float64) error {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("user with id %s not found", id)
	}
	u.TotalBottles += bottles
	u.TotalEarnings += earnings
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "users", EntityID: id, Kind: models.ChangeUpdated})
	return nil
}

func (s *userStore) IncrementCancellations(ctx context.Context, id string) error {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("user with id %s not found", id)
	}
	u.CancellationCount++
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "users", EntityID: id, Kind: models.ChangeUpdated})
	return nil
}

func (s *userStore) IncrementDisputes(ctx context.Context, id string) error {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("user with id %s not found", id)
	}
	u.DisputeCount++
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "users", EntityID: id, Kind: models.ChangeUpdated})
	return nil
}

// --- wallet view ---

type walletStore struct{ *Store }

func (s *walletStore) Append(ctx context.Context, txn *models.WalletTransaction) error {
	s.mu.Lock()
	s.loadWalletLocked(ctx, txn.UserID)
	s.wallets[txn.UserID] = append(s.wallets[txn.UserID], *txn)
	s.persistWallet(ctx, txn.UserID)
	s.mu.Unlock()

	s.emit(models.ChangeEvent{Collection: "wallets", EntityID: txn.ID, Kind: models.ChangeCreated})
	return nil
}

func (s *walletStore) ListByUser(ctx context.Context, userID string) ([]models.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadWalletLocked(ctx, userID)
	txns := s.wallets[userID]
	out := make([]models.WalletTransaction, len(txns))
	// newest first
	for i, t := range txns {
		out[len(txns)-1-i] = t
	}
	return out, nil
}

func (s *walletStore) ListAll(ctx context.Context) ([]models.WalletTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.WalletTransaction
	for _, id := range s.userOrder {
		out = append(out, s.wallets[id]...)
	}
	return out, nil
}
