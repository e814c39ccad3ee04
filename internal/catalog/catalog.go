package catalog

// Catalog 音频资源目录，负责分类发现与文件枚举
// 所有操作均幂等可缓存；目录不可读时返回空结果而不是错误，
// 上层据此降级为 "无可用频道"
type Catalog interface {
	// Discover 枚举根目录下的分类子目录
	Discover(forceRefresh bool) []Category
	// ListFiles 枚举一个分类目录内可识别的音频文件
	ListFiles(path string, forceRefresh bool) []AssetDescriptor
}

// Category 一个频道分类对应的子目录
type Category struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	FileCount int    `json:"file_count"`
}

// AssetDescriptor 一个可播放音频文件的描述，扫描产物，不可变
type AssetDescriptor struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
}
