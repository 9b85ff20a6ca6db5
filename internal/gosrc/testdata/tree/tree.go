package tree

// Attrs is a nested attribute bag.
type Attrs map[string]Attrs

// Tree is a list of subtrees.
type Tree []Tree

// Link points at the next link.
type Link *Link

// Doc holds recursive named containers.
type Doc struct {
	Attrs    Attrs  `json:"attrs"`
	Children Tree   `json:"children"`
	Next     Link   `json:"next"`
	Title    string `json:"title"`
}
