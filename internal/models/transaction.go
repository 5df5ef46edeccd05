package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// TransactionType enumerates loyalty point movements.
type TransactionType string

const (
	TxEarnPoints      TransactionType = "EarnPoints"
	TxRedeemPoints    TransactionType = "RedeemPoints"
	TxRegisterMember  TransactionType = "RegisterMember"
	TxRegisterPartner TransactionType = "RegisterPartner"
	TxRecoverPoints   TransactionType = "RecoverPoints"
)

// FundType enumerates microcredit fund movements.
type FundType string

const (
	FundPromise FundType = "PromiseFund"
	FundReceive FundType = "ReceiveFund"
	FundRevert  FundType = "RevertFund"
	FundSpend   FundType = "SpendFund"
)

// Receipt is the chain gateway's proof-of-execution payload, stored
// verbatim alongside the local transaction record.
type Receipt struct {
	TransactionHash   string          `json:"transactionHash"`
	TransactionIndex  int             `json:"transactionIndex"`
	BlockHash         string          `json:"blockHash"`
	BlockNumber       int64           `json:"blockNumber"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	GasUsed           int64           `json:"gasUsed"`
	CumulativeGasUsed int64           `json:"cumulativeGasUsed"`
	ContractAddress   string          `json:"contractAddress"`
	Status            bool            `json:"status"`
	Logs              json.RawMessage `json:"logs,omitempty"`
}

// Value serializes the receipt for a jsonb column.
func (r Receipt) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan deserializes a jsonb column into the receipt.
func (r *Receipt) Scan(value interface{}) error {
	if value == nil {
		*r = Receipt{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	}
	return errors.New("receipt: unsupported column type")
}

// LoyaltyTransaction is an append-only record of a loyalty point movement
// mirroring the on-chain result. FromID and ToID are weak references:
// rows survive user deletion.
type LoyaltyTransaction struct {
	BaseModel
	FromID uuid.UUID       `gorm:"type:uuid;index" json:"from_id"`
	ToID   uuid.UUID       `gorm:"type:uuid;index" json:"to_id"`
	Type   TransactionType `gorm:"index" json:"type"`

	// Denormalized display info, captured at write time.
	FromName  string  `json:"from_name"`
	FromEmail string  `json:"from_email"`
	ToEmail   string  `json:"to_email"`
	Points    float64 `json:"points"`

	Tx      string  `json:"tx"`
	Receipt Receipt `gorm:"type:jsonb" json:"receipt"`
}

// MicrocreditTransaction is an append-only record of a campaign fund
// movement, carrying a denormalized pointer into the campaign graph.
type MicrocreditTransaction struct {
	BaseModel
	Type FundType `gorm:"index" json:"type"`

	Address       string    `json:"address"`
	UserID        uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	CampaignID    uuid.UUID `gorm:"type:uuid;index" json:"campaign_id"`
	SupportID     uuid.UUID `gorm:"type:uuid;index" json:"support_id"`
	ContractIndex int       `json:"contract_index"`

	Tx      string  `json:"tx"`
	Receipt Receipt `gorm:"type:jsonb" json:"receipt"`
}
