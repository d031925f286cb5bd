package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
)

var (
	electionsBucket   = []byte("elections")
	candidatesBucket  = []byte("candidates")
	pledgesBucket     = []byte("pledges")
	evaluationsBucket = []byte("evaluations")
	usersBucket       = []byte("users")
	metaBucket        = []byte("meta")

	lastUpdateKey = []byte("last_update")

	allBuckets = [][]byte{electionsBucket, candidatesBucket, pledgesBucket, evaluationsBucket, usersBucket, metaBucket}
)

// Bolt keeps the collections in a single bbolt file, one bucket per
// collection and one JSON record per key.
type Bolt struct {
	db *bbolt.DB
}

func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) SaveElections(items []models.Election) error {
	return replaceBucket(b.db, electionsBucket, items, func(e models.Election) string { return e.ID })
}

func (b *Bolt) SaveCandidates(items []models.Candidate) error {
	return replaceBucket(b.db, candidatesBucket, items, func(c models.Candidate) string { return c.ID })
}

func (b *Bolt) SavePledges(items []models.Pledge) error {
	return replaceBucket(b.db, pledgesBucket, items, func(p models.Pledge) string { return p.ID })
}

func (b *Bolt) SaveEvaluations(items []models.Evaluation) error {
	return replaceBucket(b.db, evaluationsBucket, items, func(e models.Evaluation) string {
		return e.UserID + "\x00" + e.PledgeID
	})
}

// SaveUsers drops the connection bound fields, a restarted server has no
// one online.
func (b *Bolt) SaveUsers(items []models.User) error {
	stored := make([]models.User, len(items))
	for i, u := range items {
		u.Online = false
		u.SessionToken = ""
		stored[i] = u
	}
	return replaceBucket(b.db, usersBucket, stored, func(u models.User) string { return u.ID })
}

func (b *Bolt) SaveLastUpdate(t time.Time) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Put(lastUpdateKey, []byte(strconv.FormatInt(t.Unix(), 10)))
	})
}

func (b *Bolt) Load() (*Snapshot, error) {
	s := &Snapshot{}
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		if s.Elections, err = readBucket[models.Election](tx, electionsBucket); err != nil {
			return err
		}
		if s.Candidates, err = readBucket[models.Candidate](tx, candidatesBucket); err != nil {
			return err
		}
		if s.Pledges, err = readBucket[models.Pledge](tx, pledgesBucket); err != nil {
			return err
		}
		if s.Evaluations, err = readBucket[models.Evaluation](tx, evaluationsBucket); err != nil {
			return err
		}
		if s.Users, err = readBucket[models.User](tx, usersBucket); err != nil {
			return err
		}
		if v := tx.Bucket(metaBucket).Get(lastUpdateKey); v != nil {
			s.LastUpdate = fromEpoch(string(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func replaceBucket[T any](db *bbolt.DB, name []byte, items []T, key func(T) string) error {
	return db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to drop bucket %s: %w", name, err)
		}
		bucket, err := tx.CreateBucket(name)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
		for _, item := range items {
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("failed to marshal %s record: %w", name, err)
			}
			if err := bucket.Put([]byte(key(item)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func readBucket[T any](tx *bbolt.Tx, name []byte) ([]T, error) {
	var out []T
	err := tx.Bucket(name).ForEach(func(k, v []byte) error {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return fmt.Errorf("failed to unmarshal %s record %q: %w", name, k, err)
		}
		out = append(out, item)
		return nil
	})
	return out, err
}
