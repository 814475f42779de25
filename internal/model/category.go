package model

import "errors"

// Category 农产品分类。
type Category string

// remember to add new categories to the validCategories map
const (
	CategoryFruits     Category = "fruits"
	CategoryVegetables Category = "vegetables"
	CategoryGrains     Category = "grains"
	CategoryDairy      Category = "dairy"
	CategoryMeat       Category = "meat"
	CategoryHerbs      Category = "herbs"
	CategoryOther      Category = "other"
)

var validCategories = map[Category]struct{}{
	CategoryFruits:     {},
	CategoryVegetables: {},
	CategoryGrains:     {},
	CategoryDairy:      {},
	CategoryMeat:       {},
	CategoryHerbs:      {},
	CategoryOther:      {},
}

func ToCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := validCategories[c]; ok {
		return c, nil
	}
	return "", errors.New("invalid product category")
}

func Categories() []Category {
	return []Category{
		CategoryFruits,
		CategoryVegetables,
		CategoryGrains,
		CategoryDairy,
		CategoryMeat,
		CategoryHerbs,
		CategoryOther,
	}
}
