package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// Models is a list of all the structs exported here which represent tables
// in the archive database schema
var Models = []interface{}{
	&Session{},
	&SessionEvent{},
}

// Session is one archived sync session.
type Session struct {
	gorm.Model
	Name      string    `json:"name" gorm:"size:127"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Events    []SessionEvent
}

func (*Session) TableName() string {
	return "sessions"
}

// SessionEvent is one archived event. Payload holds the original message
// JSON; Position holds the event coordinates projected to EPSG 3857 for
// events that carry any.
type SessionEvent struct {
	gorm.Model
	SessionID  uint           `json:"sessionId" gorm:"index"`
	Seq        uint64         `json:"seq"`
	Origin     string         `json:"origin" gorm:"size:64"`
	FromHost   bool           `json:"fromHost"`
	Type       string         `json:"type" gorm:"size:64;index"`
	Payload    datatypes.JSON `json:"payload"`
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	Position   geom.Point     `json:"-"`
	RecordedAt time.Time      `json:"recordedAt"`
}

func (*SessionEvent) TableName() string {
	return "session_events"
}
