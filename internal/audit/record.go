// Package audit records every backend exchange in a shared, append-only
// generation log shaped like a spreadsheet: a fixed column schema with one
// row per record.
package audit

import (
	"encoding/json"
	"time"

	"github.com/HerbHall/narracode/pkg/llm"
)

// Column names of the generation log, in schema order.
const (
	ColumnTimestamp  = "timestamp"
	ColumnUser       = "user"
	ColumnService    = "service"
	ColumnBaseModel  = "base_model"
	ColumnCodingTask = "coding_task"
	ColumnInput      = "input"
	ColumnParams     = "generation_params"
	ColumnOutput     = "output"
	ColumnTask       = "task"
)

// Columns is the fixed schema of the generation log.
var Columns = []string{
	ColumnTimestamp, ColumnUser, ColumnService, ColumnBaseModel, ColumnCodingTask,
	ColumnInput, ColumnParams, ColumnOutput, ColumnTask,
}

// TimestampLayout renders Record.Timestamp in the log.
const TimestampLayout = time.DateTime

// Record is one backend exchange. Records are never mutated once built.
type Record struct {
	Timestamp  time.Time
	User       string
	Service    string
	BaseModel  string
	CodingTask string
	Input      string // JSON-encoded message list.
	Params     string // JSON-encoded generation parameters.
	Output     string
	Task       string // Interaction kind: direct_coding or chat.
}

// NewRecord serializes a backend exchange into a Record.
func NewRecord(at time.Time, user, service, model, codingTask, kind string,
	messages []llm.Message, params llm.Params, output string) (Record, error) {
	input, err := json.Marshal(messages)
	if err != nil {
		return Record{}, err
	}
	gen, err := json.Marshal(params)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Timestamp:  at,
		User:       user,
		Service:    service,
		BaseModel:  model,
		CodingTask: codingTask,
		Input:      string(input),
		Params:     string(gen),
		Output:     output,
		Task:       kind,
	}, nil
}

// Row returns the record's fields in schema order.
func (r Record) Row() []string {
	return []string{
		r.Timestamp.Format(TimestampLayout),
		r.User,
		r.Service,
		r.BaseModel,
		r.CodingTask,
		r.Input,
		r.Params,
		r.Output,
		r.Task,
	}
}
