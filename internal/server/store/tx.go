package store

import (
	"errors"

	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
)

// ErrReadOnly is returned by mutating Tx methods inside View.
var ErrReadOnly = errors.New("read-only transaction")

// Tx is only valid inside the function passed to View or Update. Getters
// return copies; slices returned by list methods are fresh.
type Tx struct {
	s        *Store
	writable bool
	dirty    Collection
}

// Mark schedules c to be persisted when the Update returns.
func (tx *Tx) Mark(c Collection) {
	tx.dirty |= c
}

func (tx *Tx) Election(id string) (models.Election, bool) {
	i, ok := tx.s.electionIdx[id]
	if !ok {
		return models.Election{}, false
	}
	return tx.s.elections[i], true
}

func (tx *Tx) Elections() []models.Election {
	return append([]models.Election(nil), tx.s.elections...)
}

func (tx *Tx) Candidate(id string) (models.Candidate, bool) {
	i, ok := tx.s.candidateIdx[id]
	if !ok {
		return models.Candidate{}, false
	}
	return tx.s.candidates[i], true
}

func (tx *Tx) Candidates() []models.Candidate {
	return append([]models.Candidate(nil), tx.s.candidates...)
}

func (tx *Tx) Pledge(id string) (models.Pledge, bool) {
	i, ok := tx.s.pledgeIdx[id]
	if !ok {
		return models.Pledge{}, false
	}
	return tx.s.pledges[i], true
}

func (tx *Tx) Pledges() []models.Pledge {
	return append([]models.Pledge(nil), tx.s.pledges...)
}

// SetPledgeCounts writes the derived like and dislike counters.
func (tx *Tx) SetPledgeCounts(id string, likes, dislikes int) error {
	if !tx.writable {
		return ErrReadOnly
	}
	i, ok := tx.s.pledgeIdx[id]
	if !ok {
		return notFound("pledge", id)
	}
	tx.s.pledges[i].LikeCount = likes
	tx.s.pledges[i].DislikeCount = dislikes
	return nil
}

func (tx *Tx) User(id string) (models.User, bool) {
	i, ok := tx.s.userIdx[id]
	if !ok {
		return models.User{}, false
	}
	return tx.s.users[i], true
}

func (tx *Tx) Users() []models.User {
	return append([]models.User(nil), tx.s.users...)
}

// PutUser inserts u or replaces the user with the same id.
func (tx *Tx) PutUser(u models.User) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if i, ok := tx.s.userIdx[u.ID]; ok {
		tx.s.users[i] = u
		return nil
	}
	if err := checkLimit(Users, tx.s.limits.Users, len(tx.s.users)+1); err != nil {
		return err
	}
	tx.s.userIdx[u.ID] = len(tx.s.users)
	tx.s.users = append(tx.s.users, u)
	return nil
}

func (tx *Tx) Evaluation(userID, pledgeID string) (models.Evaluation, bool) {
	i, ok := tx.s.evalIdx[evalKey{userID, pledgeID}]
	if !ok {
		return models.Evaluation{}, false
	}
	return tx.s.evaluations[i], true
}

// ForEachEvaluation calls fn for every row until fn returns false.
func (tx *Tx) ForEachEvaluation(fn func(models.Evaluation) bool) {
	for _, e := range tx.s.evaluations {
		if !fn(e) {
			return
		}
	}
}

func (tx *Tx) Evaluations() []models.Evaluation {
	return append([]models.Evaluation(nil), tx.s.evaluations...)
}

// PutEvaluation inserts e or overwrites the row for the same user and
// pledge, so a pair never has more than one row.
func (tx *Tx) PutEvaluation(e models.Evaluation) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if !e.Type.Valid() {
		return errors.New("evaluation type must be like or dislike")
	}
	k := evalKey{e.UserID, e.PledgeID}
	if i, ok := tx.s.evalIdx[k]; ok {
		tx.s.evaluations[i] = e
		return nil
	}
	if err := checkLimit(Evaluations, tx.s.limits.Evaluations, len(tx.s.evaluations)+1); err != nil {
		return err
	}
	tx.s.evalIdx[k] = len(tx.s.evaluations)
	tx.s.evaluations = append(tx.s.evaluations, e)
	return nil
}

// DeleteEvaluation removes the row for the pair and reports whether one
// existed. The last row takes the freed slot.
func (tx *Tx) DeleteEvaluation(userID, pledgeID string) (bool, error) {
	if !tx.writable {
		return false, ErrReadOnly
	}
	k := evalKey{userID, pledgeID}
	i, ok := tx.s.evalIdx[k]
	if !ok {
		return false, nil
	}

	last := len(tx.s.evaluations) - 1
	if i != last {
		moved := tx.s.evaluations[last]
		tx.s.evaluations[i] = moved
		tx.s.evalIdx[evalKey{moved.UserID, moved.PledgeID}] = i
	}
	tx.s.evaluations = tx.s.evaluations[:last]
	delete(tx.s.evalIdx, k)
	return true, nil
}

func (tx *Tx) ReplaceElections(items []models.Election) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if err := checkLimit(Elections, tx.s.limits.Elections, len(items)); err != nil {
		return err
	}
	tx.s.elections, tx.s.electionIdx = index(items, func(e models.Election) string { return e.ID })
	return nil
}

func (tx *Tx) ReplaceCandidates(items []models.Candidate) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if err := checkLimit(Candidates, tx.s.limits.Candidates, len(items)); err != nil {
		return err
	}
	tx.s.candidates, tx.s.candidateIdx = index(items, func(c models.Candidate) string { return c.ID })
	return nil
}

func (tx *Tx) ReplacePledges(items []models.Pledge) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if err := checkLimit(Pledges, tx.s.limits.Pledges, len(items)); err != nil {
		return err
	}
	tx.s.pledges, tx.s.pledgeIdx = index(items, func(p models.Pledge) string { return p.ID })
	return nil
}
