package service

import (
	"encoding/json"

	"github.com/noah-isme/projectflow-api/internal/authz"
)

func containsEvent(payload, eventType string) bool {
	var event ScoringEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return false
	}
	return event.Type == eventType
}

func authzStudent(id uint, name string) authz.Principal {
	return authz.Principal{ID: id, Role: authz.RoleStudent, Name: name}
}
