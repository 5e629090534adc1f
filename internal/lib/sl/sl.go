// Package sl содержит вспомогательные функции для работы с логгером slog:
// единообразный вывод ошибок и маскирование персональных данных (email)
// в структурированных полях лога.
package sl

import (
	"log/slog"
	"strings"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to sync", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Email возвращает slog.Attr с ключом "email" и маскированным адресом:
// от локальной части остаётся только первый символ ("a***@x.com").
// Полные адреса в логи не пишем.
func Email(email string) slog.Attr {
	return slog.Attr{
		Key:   "email",
		Value: slog.StringValue(Mask(email)),
	}
}

// Mask маскирует локальную часть email. Строки без "@" возвращаются как есть.
func Mask(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return email
	}
	return email[:1] + "***" + email[at:]
}
