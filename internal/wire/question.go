package wire

import "fmt"

// Question is a single entry of a packet's question section.
type Question struct {
	Name  Name
	Type  Type
	Class Class
}

func (q Question) String() string {
	return fmt.Sprintf("%s %s", q.Type, q.Name)
}

func parseQuestion(c *DeserializeContext) (Question, error) {
	name, err := c.ReadName()
	if err != nil {
		return Question{}, err
	}
	typ, err := c.ReadU16()
	if err != nil {
		return Question{}, err
	}
	class, err := c.ReadU16()
	if err != nil {
		return Question{}, err
	}
	return Question{Name: name, Type: Type(typ), Class: Class(class)}, nil
}

func (q Question) serialize(c *SerializeContext) {
	c.WriteName(q.Name)
	c.WriteBlob([]byte{byte(q.Type >> 8), byte(q.Type)})
	c.WriteBlob([]byte{byte(q.Class >> 8), byte(q.Class)})
}
