package entity

// StatusFill цвет индикатора состояния узла
type StatusFill string

const (
	FillNone   StatusFill = ""
	FillYellow StatusFill = "yellow"
	FillGreen  StatusFill = "green"
	FillRed    StatusFill = "red"
)

// Status состояние узла, которое хост показывает оператору.
// Нулевое значение означает «индикатор сброшен».
type Status struct {
	Fill  StatusFill `json:"fill,omitempty"`
	Shape string     `json:"shape,omitempty"`
	Text  string     `json:"text,omitempty"`
}

// IsIdle сообщает, сброшен ли индикатор
func (s Status) IsIdle() bool {
	return s == Status{}
}

func StatusLoading() Status {
	return Status{Fill: FillYellow, Shape: "dot", Text: "Loading model..."}
}

func StatusReady() Status {
	return Status{Fill: FillGreen, Shape: "dot", Text: "Model is ready"}
}

func StatusRunning() Status {
	return Status{Fill: FillYellow, Shape: "dot", Text: "running inference..."}
}

func StatusIdle() Status {
	return Status{}
}

// StatusError красный индикатор, text может быть пустым
func StatusError(text string) Status {
	return Status{Fill: FillRed, Shape: "dot", Text: text}
}
