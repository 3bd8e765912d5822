package repository

import "errors"

// 対象が存在しない
var ErrNotFound = errors.New("not found")

// 一意制約違反など
var ErrConflict = errors.New("conflict")
