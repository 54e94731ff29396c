package model

// Mode is the lifecycle phase of a model instance.
//
// The only transitions are construction, which sets ModeTrain, and a
// successful checkpoint restore, which sets ModeRetrain. A model in
// ModeRetrain must not run the init op again; its variables already hold
// restored values.
type Mode int

const (
	// ModeTrain is the initial mode after construction.
	ModeTrain Mode = iota
	// ModeEval is evaluation mode.
	ModeEval
	// ModePredict is inference mode.
	ModePredict
	// ModeRetrain means the model was loaded from a checkpoint and training
	// continues from the restored state.
	ModeRetrain
)

// String returns the mode's wire name. ModePredict reports "infer" to match
// the conventional estimator mode keys.
func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "train"
	case ModeEval:
		return "eval"
	case ModePredict:
		return "infer"
	case ModeRetrain:
		return "retrain"
	default:
		return "unknown"
	}
}
