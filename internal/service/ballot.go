package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aathi-11/university-voting-portal/internal/models"
	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

// Ballots is the cast-vote pipeline. Callers gate it on acl.CastVote.
type Ballots struct {
	store   *store.Store
	voteKey []byte
	signKey []byte
	log     *slog.Logger
	now     func() time.Time
}

// NewBallots takes the derived vote encryption key and the server signing key.
func NewBallots(st *store.Store, voteKey, signKey []byte, logger *slog.Logger) *Ballots {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ballots{store: st, voteKey: voteKey, signKey: signKey, log: logger, now: time.Now}
}

func (b *Ballots) WithClock(now func() time.Time) *Ballots {
	b.now = now
	return b
}

// Cast records roll's vote for candidate. The existence check, the
// already-voted check, building the ballot, and persisting it with the
// has-voted flag all happen in one critical section of the store.
func (b *Ballots) Cast(roll, candidate string) (models.Ballot, error) {
	candidate = strings.TrimSpace(candidate)

	ballot, err := b.store.RecordBallot(roll, func(sub models.Subject) (models.Ballot, error) {
		if candidate == "" {
			return models.Ballot{}, ErrMissingCandidate
		}
		if err := util.ValidateCandidate(candidate); err != nil {
			return models.Ballot{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return b.seal(sub.Roll, candidate)
	})
	if err != nil {
		return models.Ballot{}, err
	}

	b.log.Info("vote recorded", "roll", roll, "ballot", ballot.ID)
	return ballot, nil
}

func (b *Ballots) seal(roll, candidate string) (models.Ballot, error) {
	content := models.BallotContent{
		VoterRoll: roll,
		Candidate: candidate,
		TS:        b.now().UnixMilli(),
	}

	plain, err := util.Canonicalize(content)
	if err != nil {
		return models.Ballot{}, err
	}
	encrypted, err := util.EncryptWithContext(plain, b.voteKey, []byte(roll))
	if err != nil {
		return models.Ballot{}, fmt.Errorf("encrypt ballot: %w", err)
	}
	sig, err := util.Sign(content, b.signKey)
	if err != nil {
		return models.Ballot{}, fmt.Errorf("sign ballot: %w", err)
	}

	return models.Ballot{
		ID:               uuid.NewString(),
		VoterRoll:        roll,
		Candidate:        candidate,
		Signature:        sig,
		EncryptedPayload: encrypted,
	}, nil
}

// Open decrypts a stored ballot's payload.
func (b *Ballots) Open(ballot models.Ballot) (models.BallotContent, error) {
	plain, err := util.DecryptWithContext(ballot.EncryptedPayload, b.voteKey, []byte(ballot.VoterRoll))
	if err != nil {
		return models.BallotContent{}, err
	}
	var content models.BallotContent
	if err := json.Unmarshal(plain, &content); err != nil {
		return models.BallotContent{}, fmt.Errorf("%w: %v", util.ErrFormat, err)
	}
	return content, nil
}

// AuditIssue describes one ballot that failed verification.
type AuditIssue struct {
	BallotID  string `json:"ballotId"`
	VoterRoll string `json:"voterRoll"`
	Reason    string `json:"reason"`
}

// AuditReport summarizes a pass over the ballot collection.
type AuditReport struct {
	Total      int          `json:"total"`
	Verified   int          `json:"verified"`
	Tampered   int          `json:"tampered"`
	Unreadable int          `json:"unreadable"`
	Issues     []AuditIssue `json:"issues,omitempty"`
}

// Audit decrypts every ballot, checks it against its plaintext columns and
// verifies its signature.
func (b *Ballots) Audit() AuditReport {
	ballots := b.store.Ballots()
	report := AuditReport{Total: len(ballots)}

	for _, ballot := range ballots {
		issue := AuditIssue{BallotID: ballot.ID, VoterRoll: ballot.VoterRoll}

		content, err := b.Open(ballot)
		if err != nil {
			report.Unreadable++
			issue.Reason = err.Error()
			report.Issues = append(report.Issues, issue)
			continue
		}

		switch {
		case content.VoterRoll != ballot.VoterRoll || content.Candidate != ballot.Candidate:
			issue.Reason = "payload does not match ballot record"
		case !util.Verify(content, ballot.Signature, b.signKey):
			issue.Reason = "signature mismatch"
		default:
			report.Verified++
			continue
		}
		report.Tampered++
		report.Issues = append(report.Issues, issue)
	}

	if report.Tampered+report.Unreadable > 0 {
		b.log.Warn("ballot audit found problems", "tampered", report.Tampered, "unreadable", report.Unreadable)
	}
	return report
}
