package domain

import "strings"

// ArtifactKey однозначно определяет артефакт в хранилище: идентификатор + формат.
type ArtifactKey struct {
	ID     string
	Format Format
}

func NewArtifactKey(id string, format Format) ArtifactKey {
	return ArtifactKey{ID: id, Format: format}
}

// FileName возвращает имя файла (или объекта) артефакта: {id}.{ext}.
func (k ArtifactKey) FileName() string {
	return k.ID + "." + k.Format.Ext()
}

// ParseArtifactFileName восстанавливает ключ по имени файла; ok=false для посторонних файлов.
func ParseArtifactFileName(name string) (ArtifactKey, bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return ArtifactKey{}, false
	}

	format, err := ParseFormat(name[idx+1:])
	if err != nil || format.Ext() != name[idx+1:] {
		return ArtifactKey{}, false
	}

	return NewArtifactKey(name[:idx], format), true
}
