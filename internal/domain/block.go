package domain

import (
	"time"

	"github.com/msto63/chainfeed/internal/wire"
)

// Block is one block header
type Block struct {
	ID                string     `json:"id" db:"id"`
	Height            int64      `json:"height" db:"height"`
	Version           int64      `json:"version" db:"version"`
	Timestamp         int64      `json:"timestamp" db:"timestamp"`
	TxCount           int64      `json:"tx_count" db:"tx_count"`
	Size              int64      `json:"size" db:"size"`
	Weight            int64      `json:"weight" db:"weight"`
	MerkleRoot        string     `json:"merkle_root" db:"merkle_root"`
	PreviousBlockHash string     `json:"previousblockhash" db:"previousblockhash"`
	MedianTime        int64      `json:"mediantime" db:"mediantime"`
	Nonce             int64      `json:"nonce" db:"nonce"`
	Bits              int64      `json:"bits" db:"bits"`
	Difficulty        float64    `json:"difficulty" db:"difficulty"`
	CreatedAt         *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// BlockFromMsg maps a wire block. The result is always complete; an
// unparseable created_at becomes DefaultTimestamp and is reported in err.
func BlockFromMsg(msg *wire.BlockMsg) (Block, error) {
	if msg == nil {
		return Block{}, ErrNilMessage
	}

	var errs fieldErrors
	b := Block{
		ID:                msg.ID,
		Height:            msg.Height,
		Version:           msg.Version,
		Timestamp:         msg.Timestamp,
		TxCount:           msg.TxCount,
		Size:              msg.Size,
		Weight:            msg.Weight,
		MerkleRoot:        msg.MerkleRoot,
		PreviousBlockHash: msg.PreviousBlockHash,
		MedianTime:        msg.MedianTime,
		Nonce:             msg.Nonce,
		Bits:              msg.Bits,
		Difficulty:        msg.Difficulty,
		CreatedAt:         errs.timestamp("created_at", msg.CreatedAt),
	}
	return b, errs.err()
}

// ToMsg maps the block back to its wire form.
// CreatedAt must be set; a nil CreatedAt panics.
func (b Block) ToMsg() *wire.BlockMsg {
	if b.CreatedAt == nil {
		panic("domain: Block.ToMsg requires CreatedAt")
	}
	return &wire.BlockMsg{
		ID:                b.ID,
		Height:            b.Height,
		Version:           b.Version,
		Timestamp:         b.Timestamp,
		TxCount:           b.TxCount,
		Size:              b.Size,
		Weight:            b.Weight,
		MerkleRoot:        b.MerkleRoot,
		PreviousBlockHash: b.PreviousBlockHash,
		MedianTime:        b.MedianTime,
		Nonce:             b.Nonce,
		Bits:              b.Bits,
		Difficulty:        b.Difficulty,
		CreatedAt:         FormatTimestamp(*b.CreatedAt),
	}
}
