package common

import (
	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

// NewIdWorker falls back to machine id 1 when no private address can be found.
func NewIdWorker() *sonyflake.Sonyflake {
	if w := sonyflake.NewSonyflake(sonyflake.Settings{}); w != nil {
		return w
	}
	return sonyflake.NewSonyflake(sonyflake.Settings{MachineID: func() (uint16, error) { return 1, nil }})
}

func NextId(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}
