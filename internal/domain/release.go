package domain

import (
	"path"
	"sort"
	"time"
)

// ReleaseNameLayout — формат имени релиза: UTC timestamp с точностью до секунды.
// Лексикографический порядок имён совпадает с хронологическим.
const ReleaseNameLayout = "20060102150405"

// Release — отдельная выкладка кода приложения на целевом хосте.
//
// Релиз создаётся checkout'ом в <releases_path>/<name>,
// активируется переключением симлинка current и удаляется
// при cleanup или rollback.
type Release struct {
	// Name — имя релиза (timestamp в формате ReleaseNameLayout).
	Name string `json:"name"`

	// Path — абсолютный путь к каталогу релиза на хосте.
	Path string `json:"path"`
}

// NewRelease создаёт релиз с именем name внутри releasesPath.
func NewRelease(releasesPath, name string) Release {
	return Release{
		Name: name,
		Path: path.Join(releasesPath, name),
	}
}

// ReleaseName форматирует момент времени как имя релиза (в UTC).
func ReleaseName(t time.Time) string {
	return t.UTC().Format(ReleaseNameLayout)
}

// ParseReleaseName разбирает имя релиза обратно во время.
func ParseReleaseName(name string) (time.Time, error) {
	return time.ParseInLocation(ReleaseNameLayout, name, time.UTC)
}

// IsReleaseName проверяет, что строка является корректным именем релиза.
// Используется, чтобы не трогать посторонние каталоги в releases_path.
func IsReleaseName(name string) bool {
	if len(name) != len(ReleaseNameLayout) {
		return false
	}
	_, err := ParseReleaseName(name)
	return err == nil
}

// SortReleases возвращает отсортированную по возрастанию копию имён.
// Самый старый релиз — первый, самый новый — последний.
func SortReleases(names []string) []string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return sorted
}

// PlanCleanup делит релизы на сохраняемые и удаляемые.
//
// Сохраняются maxReleases самых новых (по имени), остальные
// возвращаются в remove, от старых к новым.
// Если релизов не больше maxReleases, remove пустой.
func PlanCleanup(names []string, maxReleases int) (keep, remove []string) {
	sorted := SortReleases(names)
	if maxReleases < 0 {
		maxReleases = 0
	}
	if len(sorted) <= maxReleases {
		return sorted, nil
	}

	cut := len(sorted) - maxReleases
	return sorted[cut:], sorted[:cut]
}

// PlanRollback выбирает релиз для отката.
//
// previous — второй по новизне релиз (станет current),
// latest — самый новый (будет удалён).
// ok=false, если релизов меньше двух.
func PlanRollback(names []string) (previous, latest string, ok bool) {
	if len(names) < 2 {
		return "", "", false
	}
	sorted := SortReleases(names)
	n := len(sorted)
	return sorted[n-2], sorted[n-1], true
}
