// Package migrations 内嵌数据库迁移脚本，每种方言一个目录
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
