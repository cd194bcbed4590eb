package models

import (
	"time"
)

type Chain struct {
	ID            int64
	ChainID       uint64
	Name          string
	Spender       string
	NativeToken   string
	FusionEnabled bool
	FeeModel      string
	TxType        uint64
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
