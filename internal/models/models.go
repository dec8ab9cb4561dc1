package models

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Class{},
		&ClassMember{},
		&Quiz{},
		&Question{},
		&Option{},
		&StudentResponse{},
	}
}
