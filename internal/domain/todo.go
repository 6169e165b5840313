package domain

type TodoID string

type Todo struct {
	ID        TodoID `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
