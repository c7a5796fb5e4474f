// Package validator validates option structs via a `validate` struct
// tag, reflect-walked the same way a full request-body validator would
// be, but trimmed to the handful of rules peepsy's numeric option
// bounds need.
//
// Example:
//
//	type WorkerOptions struct {
//		MaxConcurrency int `validate:"min:0"`
//		TimeoutMs      int `validate:"between:1,300000"`
//	}
//
//	if err := validator.ValidateStruct(&opts); err != nil {
//		return err
//	}
package validator
