package inventory

// Resource identifies a placeable object kind.
type Resource string

const (
	ResourceHouse Resource = "house"
	ResourceTree  Resource = "tree"
	ResourceRock  Resource = "rock"
	ResourceRoad  Resource = "road"
)

// StarterResource is granted to every new player on first identity
// assignment.
const StarterResource = ResourceHouse

// StarterQty is the amount of StarterResource a new player begins with.
const StarterQty = 1

var known = map[Resource]bool{
	ResourceHouse: true,
	ResourceTree:  true,
	ResourceRock:  true,
	ResourceRoad:  true,
}

// Valid reports whether r names a known resource.
func (r Resource) Valid() bool {
	return known[r]
}
