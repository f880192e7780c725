package entity

// UnknownIdentity личность по умолчанию, пока никто не распознан
const UnknownIdentity = "Unknown"

// FaceMatch одно лицо, найденное классификатором
type FaceMatch struct {
	Box        BoundingBox
	Identity   string
	Similarity float64
	Known      bool
}

// AuthResult итог проверки кадра на авторизованное лицо.
type AuthResult struct {
	Identity   string
	Authorized bool
	Faces      []FaceMatch
	Frame      *Frame // кадр с разметкой лиц
}

// NewAuthResult создаёт неавторизованный результат для кадра.
func NewAuthResult(frame *Frame) AuthResult {
	return AuthResult{Identity: UnknownIdentity, Frame: frame}
}
