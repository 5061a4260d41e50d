package model

// All lists every model migrated by init-db.
func All() []any {
	return []any{
		&RiskAssessment{},
		&Incident{},
		&Finding{},
		&CorrectiveAction{},
		&ControlledDocument{},
		&DocumentVersion{},
		&DocumentReview{},
		&EquipmentAssignment{},
		&Checklist{},
		&Inspection{},
		&Training{},
		&KVEntry{},
	}
}
