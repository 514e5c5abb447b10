package icm

import (
	"path"
	"strings"
)

// excludedDirNames are directory names excluded from tree rebuilds,
// case-insensitive.
var excludedDirNames = map[string]bool{
	"bin": true, "obj": true, ".vs": true, "packages": true, "apppackages": true,
}

// excludedFileNames are exact file names always excluded regardless of
// other visibility rules.
var excludedFileNames = map[string]bool{
	"desktop.ini": true,
}

// excludedExtensions are file extensions always excluded.
var excludedExtensions = map[string]bool{
	".desktop": true,
}

// cloudCacheDirName is the hidden control directory under CloudRoot. It is
// excluded from sync content except for PDIL files, which are synced as
// ordinary files (see pdil package) so peers can learn each other's delete
// sets.
const cloudCacheDirName = ".cloud_cache"

// IsVisible reports whether relPath passes the baseline visibility rules
// every entry must satisfy before it can be added to the Map: no hidden
// (dot- or underscore-prefixed) path segment, no excluded directory name,
// no excluded file name or extension.
func IsVisible(relPath string) bool {
	if relPath == "" {
		return false
	}

	segments := strings.Split(relPath, "/")

	for i, seg := range segments {
		if seg == "" {
			return false
		}

		if strings.HasPrefix(seg, ".") || strings.HasPrefix(seg, "_") {
			return false
		}

		if excludedDirNames[strings.ToLower(seg)] {
			return false
		}

		isLast := i == len(segments)-1
		if isLast {
			if excludedFileNames[strings.ToLower(seg)] {
				return false
			}

			if excludedExtensions[strings.ToLower(path.Ext(seg))] {
				return false
			}
		}
	}

	return true
}

// IsUnderCloudCache reports whether relPath lies under the hidden
// .cloud_cache control directory.
func IsUnderCloudCache(relPath string) bool {
	return relPath == cloudCacheDirName || strings.HasPrefix(relPath, cloudCacheDirName+"/")
}

// pdilSuffix is the file extension a deleted-id list is persisted under
// (see internal/pdil.PathFor): "CloudRoot/.cloud_cache/<userId>.Deleted".
const pdilSuffix = ".Deleted"

// IsPDILFile reports whether relPath names a deleted-id list file directly
// under .cloud_cache. Unlike the rest of that directory, PDIL files ARE
// ordinary sync content — excluding them would mean a peer's delete set
// never reaches the other side.
func IsPDILFile(relPath string) bool {
	if !IsUnderCloudCache(relPath) || relPath == cloudCacheDirName {
		return false
	}

	rest := strings.TrimPrefix(relPath, cloudCacheDirName+"/")
	if strings.Contains(rest, "/") {
		return false
	}

	return strings.HasSuffix(rest, pdilSuffix) && rest != pdilSuffix
}
