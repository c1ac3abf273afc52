package repository

import "errors"

// ErrAlreadyRegistered возвращается при повторной попытке записать отпечаток
// для уже зарегистрированного аккаунта.
var ErrAlreadyRegistered = errors.New("account already registered")
