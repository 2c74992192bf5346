package models

// Ballot is one subject's recorded vote. Candidate is kept in plaintext for
// tallying; EncryptedPayload holds the full content including the cast time.
type Ballot struct {
	ID               string `gorm:"primaryKey;size:36" json:"id"`
	VoterRoll        string `gorm:"size:64;uniqueIndex;not null" json:"voterRoll"`
	Candidate        string `gorm:"size:64;index;not null" json:"candidate"`
	Signature        string `gorm:"size:64;not null" json:"signature"`
	EncryptedPayload string `gorm:"type:text;not null" json:"encryptedPayload"`
}

// BallotContent is what gets encrypted and signed for a ballot.
type BallotContent struct {
	VoterRoll string `json:"voterRoll"`
	Candidate string `json:"candidate"`
	TS        int64  `json:"ts"`
}
