package qa

import "errors"

// ErrNotFound 引用的问答记录不存在，管理操作直接向调用方暴露
var ErrNotFound = errors.New("qa record not found")
