package ncclient

import "github.com/damianoneill/ncclient/netconf/common"

const (
	// CollectionNamespace is the namespace of the container wrapping multiple reply elements.
	CollectionNamespace = "http://tail-f.com/ns/rest"
	// CollectionName is the name of the container wrapping multiple reply elements.
	CollectionName = "collection"
)

// ToDocument shapes the elements of a reply as a single document.
// A single element is delivered unchanged. Otherwise the elements, if any, are wrapped in order by a collection
// element.
func ToDocument(elements []*common.Element) *common.Element {
	if len(elements) == 1 {
		return elements[0]
	}
	return common.NewElement(CollectionNamespace, CollectionName, elements...)
}
