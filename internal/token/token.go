// Пакет token — выпуск и проверка токенов сессий.
// Токен — компактный HS256 JWT с claims {user_id, exp}: три base64url-сегмента
// через точку. Состояния нет: проверка сводится к пересчёту подписи и
// сравнению exp, отзыв не поддерживается (logout — выброс токена клиентом).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken — токен не прошёл проверку: неверный формат, подпись,
// алгоритм или истёкший срок. Причины наружу не различаются.
var ErrInvalidToken = errors.New("невалидный или просроченный токен")

// sessionClaims — полезная нагрузка токена сессии.
type sessionClaims struct {
	// UserID — идентификатор субъекта
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Service — выпуск и проверка токенов с общим секретом подписи.
// Секрет read-only после создания сервиса.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New создаёт сервис токенов.
// secret — секрет подписи HS256, ttl — срок жизни токена с момента выпуска.
func New(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewWithClock создаёт сервис токенов с подменяемыми часами.
// Используется в тестах для проверки истечения срока.
func NewWithClock(secret string, ttl time.Duration, now func() time.Time) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}
}

// Issue выпускает токен для пользователя с exp = now + ttl.
func (s *Service) Issue(userID int64) (string, error) {
	now := s.now()
	claims := &sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, nil
}

// Verify проверяет токен и возвращает идентификатор субъекта.
// Любой дефект входа — неверное число сегментов, недекодируемые сегменты,
// чужая подпись, неподдерживаемый алгоритм, истёкший exp — детерминированно
// даёт ErrInvalidToken, без паник.
func (s *Service) Verify(tokenString string) (int64, error) {
	claims := &sessionClaims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}

	if claims.UserID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}
