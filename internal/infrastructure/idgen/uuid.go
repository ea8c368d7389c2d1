package idgen

import "github.com/google/uuid"

// UUIDGenerator выдаёт случайные UUIDv4 в канонической форме.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Valid принимает только канонические UUID (36 символов): такой идентификатор
// безопасно использовать как имя файла.
func (g *UUIDGenerator) Valid(id string) bool {
	if len(id) != 36 {
		return false
	}
	return uuid.Validate(id) == nil
}
