package models

import "time"

// Project is a named, ordered collection of tasks. Tasks have no lifetime
// outside their project.
type Project struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Tasks     []Task    `json:"tasks" yaml:"tasks"`
}

// Clone returns a deep copy of the project and its tasks.
func (p Project) Clone() Project {
	c := p
	if p.Tasks != nil {
		c.Tasks = make([]Task, len(p.Tasks))
		for i, t := range p.Tasks {
			c.Tasks[i] = t.Clone()
		}
	}
	return c
}

// TaskIndex returns the position of the task with the given ID, or -1.
func (p *Project) TaskIndex(taskID string) int {
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

// Template is a named preset of task titles used to seed a new project.
type Template struct {
	ID    string   `json:"id" yaml:"id"`
	Name  string   `json:"name" yaml:"name"`
	Tasks []string `json:"tasks" yaml:"tasks"`
}
