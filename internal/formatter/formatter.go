// Package formatter 将 apps_view 的扁平行聚合为嵌套的应用 API 对象
package formatter

import (
	"sort"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
)

// Options 聚合参数
type Options struct {
	// ServerURL 用于拼接下载与图片地址，不含末尾的 /
	ServerURL string
}

// App 应用 API 对象
type App struct {
	ID          uuid.UUID     `json:"id"`
	AppType     model.AppType `json:"appType"`
	Status      model.Status  `json:"status"`
	Created     int64         `json:"created"`
	LastUpdated int64         `json:"lastUpdated"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	SourceURL   string        `json:"sourceUrl"`
	Owner       string        `json:"owner"`
	Developer   Developer     `json:"developer"`
	Versions    []*Version    `json:"versions"`
	Images      []*Image      `json:"images"`
}

// Developer 应用开发者及其组织
type Developer struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Organisation     string    `json:"organisation"`
	OrganisationID   uuid.UUID `json:"organisationId"`
	OrganisationSlug string    `json:"organisationSlug"`
}

// Version 版本 API 对象
type Version struct {
	ID                 uuid.UUID `json:"id"`
	Version            string    `json:"version"`
	Created            int64     `json:"created"`
	LastUpdated        int64     `json:"lastUpdated"`
	Channel            string    `json:"channel"`
	MinPlatformVersion string    `json:"minPlatformVersion"`
	MaxPlatformVersion string    `json:"maxPlatformVersion"`
	DemoURL            string    `json:"demoUrl"`
	SourceURL          string    `json:"sourceUrl"`
	DownloadURL        string    `json:"downloadUrl"`
	Images             []*Image  `json:"images"`
}

// Image 图片 API 对象
type Image struct {
	ID        uuid.UUID       `json:"id"`
	ImageURL  string          `json:"imageUrl"`
	ImageType model.ImageType `json:"imageType"`
	Logo      bool            `json:"logo"`
	Caption   string          `json:"caption"`
	Filename  string          `json:"filename"`
	MimeType  string          `json:"mimeType"`
}

// NewImage 由上传后的图片记录构造 API 对象
func NewImage(m *model.MediaView, opts Options) *Image {
	return &Image{
		ID:        m.MediaID,
		ImageURL:  imageURL(opts.ServerURL, m.MediaID),
		ImageType: m.ImageType,
		Logo:      m.ImageType == model.ImageTypeLogo,
		Caption:   m.Caption,
		Filename:  m.OriginalFilename,
		MimeType:  m.MimeType,
	}
}

// appBuilder 聚合过程中的单个应用
type appBuilder struct {
	app      *App
	versions map[uuid.UUID]*Version
	images   map[uuid.UUID]*Image

	// 应用名称与描述取自最新版本
	nameVersionID      uuid.UUID
	nameVersionCreated int64
}

// Aggregate 单次遍历扁平行，按应用ID、版本ID聚合
// 同一版本出现多种语言时，本地化字段以最后一行为准；调用方应先用 SelectLocale 过滤
// 输出顺序与输入行顺序无关
func Aggregate(rows []*model.AppViewRow, opts Options) []*App {
	builders := make(map[uuid.UUID]*appBuilder)

	for _, row := range rows {
		b, ok := builders[row.AppID]
		if !ok {
			b = newAppBuilder(row)
			builders[row.AppID] = b
		}
		b.add(row, opts)
	}

	apps := make([]*App, 0, len(builders))
	for _, b := range builders {
		apps = append(apps, b.build())
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Created != apps[j].Created {
			return apps[i].Created > apps[j].Created
		}
		return apps[i].ID.String() < apps[j].ID.String()
	})
	return apps
}

// Format 先按语言过滤再聚合
func Format(rows []*model.AppViewRow, lang string, opts Options) []*App {
	return Aggregate(SelectLocale(rows, lang, model.DefaultLanguage), opts)
}

func newAppBuilder(row *model.AppViewRow) *appBuilder {
	return &appBuilder{
		app: &App{
			ID:      row.AppID,
			AppType: row.AppType,
			Status:  row.Status,
			Created: row.AppCreatedAt.UnixMilli(),
			Owner:   row.DeveloperEmail,
			Developer: Developer{
				ID:               row.DeveloperID,
				Name:             row.DeveloperName,
				Email:            row.DeveloperEmail,
				Organisation:     row.Organisation,
				OrganisationID:   row.OrganisationID,
				OrganisationSlug: row.OrganisationSlug,
			},
		},
		versions: make(map[uuid.UUID]*Version),
		images:   make(map[uuid.UUID]*Image),
	}
}

func (b *appBuilder) add(row *model.AppViewRow, opts Options) {
	created := row.VersionCreatedAt.UnixMilli()

	// 下载解析使用英文本地化的 slug，它始终等于应用 slug
	v, ok := b.versions[row.VersionID]
	if !ok {
		v = &Version{
			ID:                 row.VersionID,
			Version:            row.Version,
			Created:            created,
			LastUpdated:        created,
			Channel:            row.ChannelName,
			MinPlatformVersion: row.MinPlatformVersion,
			MaxPlatformVersion: row.MaxPlatformVersion,
			DemoURL:            row.DemoURL,
			SourceURL:          row.SourceURL,
			DownloadURL:        downloadURL(opts.ServerURL, row.OrganisationSlug, row.AppSlug, row.Version),
			Images:             []*Image{},
		}
		b.versions[row.VersionID] = v
	}

	if created > b.app.LastUpdated {
		b.app.LastUpdated = created
	}

	// 最新版本（创建时间相同时取ID较大者）提供应用级的本地化字段
	if b.nameVersionID == uuid.Nil || created > b.nameVersionCreated ||
		(created == b.nameVersionCreated && row.VersionID.String() >= b.nameVersionID.String()) {
		b.nameVersionID = row.VersionID
		b.nameVersionCreated = created
		b.app.Name = row.Name
		b.app.Description = row.Description
		b.app.SourceURL = row.SourceURL
	}

	if !row.MediaID.Valid {
		return
	}
	imageType := model.ImageType(row.ImageType.String)
	img := &Image{
		ID:        row.MediaID.UUID,
		ImageURL:  imageURL(opts.ServerURL, row.MediaID.UUID),
		ImageType: imageType,
		Logo:      imageType == model.ImageTypeLogo,
		Caption:   row.Caption.String,
		Filename:  row.OriginalFilename.String,
		MimeType:  row.MimeType.String,
	}
	if row.MediaVersionID.Valid {
		if !containsImage(v.Images, img.ID) {
			v.Images = append(v.Images, img)
		}
		return
	}
	b.images[img.ID] = img
}

func (b *appBuilder) build() *App {
	app := b.app

	app.Versions = make([]*Version, 0, len(b.versions))
	for _, v := range b.versions {
		sortImages(v.Images)
		app.Versions = append(app.Versions, v)
	}
	sort.Slice(app.Versions, func(i, j int) bool {
		if app.Versions[i].Created != app.Versions[j].Created {
			return app.Versions[i].Created > app.Versions[j].Created
		}
		return app.Versions[i].ID.String() < app.Versions[j].ID.String()
	})

	app.Images = make([]*Image, 0, len(b.images))
	for _, img := range b.images {
		app.Images = append(app.Images, img)
	}
	sortImages(app.Images)
	return app
}

// sortImages logo 在前，其余按ID排序
func sortImages(images []*Image) {
	sort.Slice(images, func(i, j int) bool {
		if images[i].Logo != images[j].Logo {
			return images[i].Logo
		}
		return images[i].ID.String() < images[j].ID.String()
	})
}

func containsImage(images []*Image, id uuid.UUID) bool {
	for _, img := range images {
		if img.ID == id {
			return true
		}
	}
	return false
}

// downloadURL 应用包下载地址
func downloadURL(serverURL, orgSlug, appSlug, version string) string {
	return serverURL + "/v1/apps/download/" + orgSlug + "/" + appSlug + "/" + version + "/" + model.ArchiveName
}

// imageURL 图片访问地址
func imageURL(serverURL string, mediaID uuid.UUID) string {
	return serverURL + "/v1/media/" + mediaID.String()
}
